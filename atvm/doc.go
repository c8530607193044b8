/*
Package atvm implements the automated-transaction virtual machine.

The atvm package implements one ATVM, a byte code VM. The BC (Byte Code) VM
loops over a set of bytes and executes them according to a fixed opcode
table, one bounded round per block. Machines observe the surrounding ledger
and emit payments and messages through a host-supplied API, and their state
serializes to a canonical byte layout so independent implementations reach
byte-identical state transitions.
*/
package atvm
