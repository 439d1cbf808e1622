// Package quantum implements the two-level density-matrix algebra used by the
// PQN detector: fixed 2x2 complex operators, the Lindblad master-equation
// stepper, and scalar observable extraction.
//
// All matrices are 2x2 and backed by gonum's CDense type. Operators are
// immutable after construction; the density matrix is mutated in place by the
// stepper, which re-enforces Hermiticity and unit trace after every update.
package quantum

import (
	"gonum.org/v1/gonum/mat"
)

// Operator is an immutable 2x2 complex matrix acting on the two-level system.
// It is either a Hamiltonian term (Hermitian) or a jump (Lindblad) operator
// (no Hermiticity constraint).
type Operator struct {
	m *mat.CDense
}

// NewOperator builds an operator from its four entries in row-major order.
func NewOperator(a00, a01, a10, a11 complex128) Operator {
	return Operator{m: mat.NewCDense(2, 2, []complex128{a00, a01, a10, a11})}
}

// At returns the entry at row i, column j.
func (o Operator) At(i, j int) complex128 {
	return o.m.At(i, j)
}

// IsZero reports whether all entries are exactly zero.
func (o Operator) IsZero() bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if o.m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// Identity returns the 2x2 identity operator.
func Identity() Operator {
	return NewOperator(1, 0, 0, 1)
}

// PauliY returns the Pauli Y operator [[0,-i],[i,0]].
func PauliY() Operator {
	return NewOperator(0, complex(0, -1), complex(0, 1), 0)
}

// PauliZ returns the Pauli Z operator [[1,0],[0,-1]].
func PauliZ() Operator {
	return NewOperator(1, 0, 0, -1)
}

// Lowering returns the lowering operator [[0,1],[0,0]], which maps the
// excited basis state to the ground state.
func Lowering() Operator {
	return NewOperator(0, 1, 0, 0)
}

// Zero returns the zero operator.
func Zero() Operator {
	return NewOperator(0, 0, 0, 0)
}

// Jump pairs a Lindblad jump operator with its decay rate.
type Jump struct {
	L    Operator
	Rate float64
}
