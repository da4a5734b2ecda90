// Package vm implements a minimal stack machine that executes contract code
// against a storage trie while metering gas.
package vm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ExecutionLimit is the maximum number of instructions a single run may
// execute before it is treated as an infinite loop.
const ExecutionLimit = 10000

// Set of faults that abort a run. No partial result is returned.
var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrPushLast           = errors.New("the 'PUSH' instruction cannot be last")
	ErrExecutionLimit     = fmt.Errorf("check for an infinite loop: execution limit of %d exceeded", ExecutionLimit)
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrInvalidOperand     = errors.New("invalid operand")
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrNoStorage          = errors.New("no storage bound to the interpreter")
)

// Storage represents the persistent key/value store bound to a contract.
type Storage interface {
	Put(key string, value any) error
	Get(key string, value any) (bool, error)
}

// Result is the outcome of a run that halted cleanly.
type Result struct {
	Value   Word   `json:"result"`
	GasUsed uint64 `json:"gasUsed"`
}

// outcome tells the control loop what to do after a step.
type outcome int

const (
	cont outcome = iota
	halt
)

// =============================================================================

// Interpreter executes a single program. Construct a new value for each run.
type Interpreter struct {
	storage    Storage
	pc         int
	stack      []Word
	code       Code
	executions int
}

// New constructs an interpreter bound to the contract storage.
func New(storage Storage) *Interpreter {
	return &Interpreter{
		storage: storage,
	}
}

// Run executes the code until STOP or the end of the code is reached and
// returns the top of the stack and the gas used.
func (in *Interpreter) Run(code Code) (Result, error) {
	in.code = code

	var gasUsed uint64
	for in.pc < len(in.code) {
		in.executions++
		if in.executions > ExecutionLimit {
			return Result{}, ErrExecutionLimit
		}

		word := in.code[in.pc]
		op := Opcode(word.str)

		cost, exists := gasTable[op]
		if !word.isStr || !exists {
			return Result{}, fmt.Errorf("%w: %s at %d", ErrInvalidOpcode, word, in.pc)
		}
		gasUsed += cost

		out, err := in.step(op)
		if err != nil {
			return Result{}, err
		}

		if out == halt {
			break
		}

		in.pc++
	}

	return Result{Value: in.top(), GasUsed: gasUsed}, nil
}

// =============================================================================

// step executes the instruction at the program counter.
func (in *Interpreter) step(op Opcode) (outcome, error) {
	switch op {
	case STOP:
		return halt, nil

	case PUSH:
		in.pc++
		if in.pc == len(in.code) {
			return cont, ErrPushLast
		}
		in.push(in.code[in.pc])

	case ADD, SUB, MUL, DIV, LT, GT, EQ, AND, OR:
		a, err := in.pop()
		if err != nil {
			return cont, err
		}
		b, err := in.pop()
		if err != nil {
			return cont, err
		}

		result, err := binary(op, b, a)
		if err != nil {
			return cont, err
		}
		in.push(result)

	case JUMP:
		if err := in.jump(); err != nil {
			return cont, err
		}

	case JUMPI:
		condition, err := in.pop()
		if err != nil {
			return cont, err
		}
		if condition.Equal(Num(1)) {
			if err := in.jump(); err != nil {
				return cont, err
			}
		}

	case STORE:
		if in.storage == nil {
			return cont, ErrNoStorage
		}
		key, err := in.pop()
		if err != nil {
			return cont, err
		}
		value, err := in.pop()
		if err != nil {
			return cont, err
		}
		if err := in.storage.Put(key.String(), value); err != nil {
			return cont, err
		}

	case LOAD:
		if in.storage == nil {
			return cont, ErrNoStorage
		}
		key, err := in.pop()
		if err != nil {
			return cont, err
		}
		var value Word
		if _, err := in.storage.Get(key.String(), &value); err != nil {
			return cont, err
		}
		in.push(value)
	}

	return cont, nil
}

// jump pops the destination and moves the program counter one before it,
// so the increment at the end of the step lands exactly on it.
func (in *Interpreter) jump() error {
	dest, err := in.pop()
	if err != nil {
		return err
	}

	n, ok := dest.Uint64()
	if !ok || n > uint64(len(in.code)) {
		return fmt.Errorf("%w: %s", ErrInvalidDestination, dest)
	}

	in.pc = int(n) - 1
	return nil
}

func (in *Interpreter) push(w Word) {
	in.stack = append(in.stack, w)
}

func (in *Interpreter) pop() (Word, error) {
	if len(in.stack) == 0 {
		return Word{}, fmt.Errorf("%w at %d", ErrStackUnderflow, in.pc)
	}

	w := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return w, nil
}

// top returns the word on top of the stack, zero when the stack is empty.
func (in *Interpreter) top() Word {
	if len(in.stack) == 0 {
		return Word{}
	}
	return in.stack[len(in.stack)-1]
}

// =============================================================================

// binary computes b op a, where a was on top of the stack.
func binary(op Opcode, b, a Word) (Word, error) {
	switch op {
	case EQ:
		return boolWord(b.Equal(a)), nil
	case AND:
		return boolWord(b.truthy() && a.truthy()), nil
	case OR:
		return boolWord(b.truthy() || a.truthy()), nil
	}

	if a.isStr || b.isStr {
		return Word{}, fmt.Errorf("%w: %s %s %s", ErrInvalidOperand, b, op, a)
	}

	var r uint256.Int
	switch op {
	case ADD:
		r.Add(&b.num, &a.num)
	case SUB:
		r.Sub(&b.num, &a.num)
	case MUL:
		r.Mul(&b.num, &a.num)
	case DIV:
		r.Div(&b.num, &a.num)
	case LT:
		return boolWord(b.num.Lt(&a.num)), nil
	case GT:
		return boolWord(b.num.Gt(&a.num)), nil
	}

	return Word{num: r}, nil
}

func boolWord(v bool) Word {
	if v {
		return Num(1)
	}
	return Num(0)
}
