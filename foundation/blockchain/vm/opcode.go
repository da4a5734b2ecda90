package vm

// Opcode is the mnemonic of a single instruction.
type Opcode string

// The set of instructions understood by the interpreter.
const (
	STOP  Opcode = "STOP"
	ADD   Opcode = "ADD"
	SUB   Opcode = "SUB"
	MUL   Opcode = "MUL"
	DIV   Opcode = "DIV"
	PUSH  Opcode = "PUSH"
	LT    Opcode = "LT"
	GT    Opcode = "GT"
	EQ    Opcode = "EQ"
	AND   Opcode = "AND"
	OR    Opcode = "OR"
	JUMP  Opcode = "JUMP"
	JUMPI Opcode = "JUMPI"
	STORE Opcode = "STORE"
	LOAD  Opcode = "LOAD"
)

// gasTable is the cost charged each time an instruction executes.
var gasTable = map[Opcode]uint64{
	STOP:  0,
	ADD:   1,
	SUB:   1,
	MUL:   1,
	DIV:   1,
	PUSH:  0,
	LT:    1,
	GT:    1,
	EQ:    1,
	AND:   1,
	OR:    1,
	JUMP:  2,
	JUMPI: 2,
	STORE: 5,
	LOAD:  5,
}

// Gas returns the cost of the instruction and whether the opcode exists.
func Gas(op Opcode) (uint64, bool) {
	cost, exists := gasTable[op]
	return cost, exists
}
