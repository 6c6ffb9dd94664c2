package classfile

import "fmt"

// Label is a branch target bound to a pc once its position is known.
type Label struct {
	id int
	pc int
}

// Bound reports whether the label has a position.
func (l *Label) Bound() bool { return l.pc >= 0 }

type fixup struct {
	at    int
	label *Label
}

// CodeBuilder appends instructions for one method and patches forward
// branches when their labels are bound.
type CodeBuilder struct {
	code   []Instruction
	lines  []LineEntry
	labels int
	fixups []fixup
}

// PC returns the index of the next instruction.
func (b *CodeBuilder) PC() int { return len(b.code) }

// Emit appends an instruction and returns its pc.
func (b *CodeBuilder) Emit(op Opcode, a, bOperand int32) int {
	b.code = append(b.code, Instruction{Op: op, A: a, B: bOperand})
	return len(b.code) - 1
}

// NewLabel allocates an unbound label.
func (b *CodeBuilder) NewLabel() *Label {
	b.labels++
	return &Label{id: b.labels, pc: -1}
}

// Bind places l at the current pc.
func (b *CodeBuilder) Bind(l *Label) error {
	if l.Bound() {
		return fmt.Errorf("label L%d bound twice", l.id)
	}
	l.pc = len(b.code)
	return nil
}

// Jump emits a branch to l, patched by Finish if l is not yet bound.
func (b *CodeBuilder) Jump(op Opcode, l *Label) int {
	if !op.IsJump() {
		panic(fmt.Sprintf("%s is not a branch", op))
	}
	at := b.Emit(op, int32(l.pc), 0)
	if !l.Bound() {
		b.fixups = append(b.fixups, fixup{at: at, label: l})
	}
	return at
}

// MarkLine records that code from the current pc onward belongs to line.
func (b *CodeBuilder) MarkLine(line int) {
	if line <= 0 {
		return
	}
	pc := uint32(len(b.code))
	if n := len(b.lines); n > 0 {
		last := &b.lines[n-1]
		if last.Line == uint32(line) {
			return
		}
		if last.PC == pc {
			last.Line = uint32(line)
			return
		}
	}
	b.lines = append(b.lines, LineEntry{PC: pc, Line: uint32(line)})
}

// Finish resolves branches and returns the code and line table.
func (b *CodeBuilder) Finish() ([]Instruction, []LineEntry, error) {
	for _, f := range b.fixups {
		if !f.label.Bound() {
			return nil, nil, fmt.Errorf("branch at pc %d targets unbound label L%d", f.at, f.label.id)
		}
		b.code[f.at].A = int32(f.label.pc)
	}
	b.fixups = nil
	return b.code, b.lines, nil
}
