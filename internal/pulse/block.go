package pulse

// Block is a named, ordered sequence of elements. It is built incrementally
// by one generation call and sealed before it is handed downstream.
type Block struct {
	Name     string    `yaml:"name"`
	Elements []Element `yaml:"elements"`

	sealed bool
}

// NewBlock returns an empty, unsealed block.
func NewBlock(name string) *Block {
	return &Block{Name: name}
}

// Append adds a single element to the block.
//
// Appending to a sealed block is a programming error and panics: sealing
// marks the hand-off point after which downstream consumers assume the
// block no longer changes.
func (b *Block) Append(el Element) *Block {
	if b.sealed {
		panic("pulse: append to sealed block " + b.Name)
	}
	b.Elements = append(b.Elements, el)
	return b
}

// Extend appends a list of elements in order.
func (b *Block) Extend(els []Element) *Block {
	for _, el := range els {
		b.Append(el)
	}
	return b
}

// Seal freezes the block. Idempotent.
func (b *Block) Seal() { b.sealed = true }

// Sealed reports whether the block has been frozen.
func (b *Block) Sealed() bool { return b.sealed }

// LaserGateCount returns the number of readout-laser elements in the block.
func (b *Block) LaserGateCount() int {
	n := 0
	for _, el := range b.Elements {
		if el.LaserOn {
			n++
		}
	}
	return n
}

// BlockRef is one ensemble entry: a block name plus the number of extra
// repetitions. Repetitions = 0 plays the block once, 1 plays it twice.
type BlockRef struct {
	Name        string `yaml:"name"`
	Repetitions int    `yaml:"repetitions"`
}

// MeasurementInfo is the record acquisition needs to interpret the data
// produced by one ensemble: the swept independent variable, its axis
// metadata, and the readout accounting.
type MeasurementInfo struct {
	Alternating        bool      `yaml:"alternating"`
	ControlledVariable []float64 `yaml:"controlled_variable"`
	Units              [2]string `yaml:"units"`
	Labels             [2]string `yaml:"labels"`

	// ReadoutGates is the total number of readout-laser windows over one
	// full playback, including alternating/reference repeats.
	ReadoutGates int `yaml:"readout_gates"`

	// CountingLength is the summed acquisition-window duration of one full
	// playback, evaluated at the longest sweep step.
	CountingLength float64 `yaml:"counting_length"`

	// IgnoredGates lists readout-gate indices acquisition should discard.
	IgnoredGates []int `yaml:"ignored_gates,omitempty"`
}

// BlockEnsemble is a named ordered sequence of block references plus the
// measurement record. It is created once per generation call and consumed
// read-only downstream.
type BlockEnsemble struct {
	// ID is a per-generation identity for correlating the ensemble with
	// downstream compilation and acquisition artifacts.
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	RotatingFrame bool             `yaml:"rotating_frame"`
	Blocks        []BlockRef       `yaml:"blocks"`
	Measurement   *MeasurementInfo `yaml:"measurement,omitempty"`
}

// Append adds a block reference to the playback order.
func (e *BlockEnsemble) Append(ref BlockRef) {
	e.Blocks = append(e.Blocks, ref)
}
