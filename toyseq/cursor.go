package toyseq

import (
	"fmt"
)

// Batch is a contiguous slice of a Dataset. It shares storage with the Dataset.
type Batch struct {
	Sequences [][][]float64
	Labels    [][]float64
	Lengths   []int
}

func (b Batch) Len() int {
	return len(b.Sequences)
}

// Cursor iterates over a Dataset in batches, starting over once the end is reached.
// The zero value starts at the beginning. Each consumer should own its Cursor;
// a Cursor is not safe for concurrent use.
type Cursor struct {
	pos int
}

// Next returns up to batchSize items starting at the cursor and advances past them.
// A batch never spans the end of the dataset, so the last batch of a pass may be short.
func (c *Cursor) Next(d *Dataset, batchSize int) Batch {
	if batchSize < 1 {
		panic(fmt.Sprintf("toyseq: batch size %d must be positive", batchSize))
	}
	n := d.Len()
	if c.pos >= n {
		c.pos = 0
	}
	end := c.pos + batchSize
	if end > n {
		end = n
	}
	b := Batch{
		Sequences: d.Sequences[c.pos:end],
		Labels:    d.Labels[c.pos:end],
		Lengths:   d.Lengths[c.pos:end],
	}
	c.pos = end
	return b
}

// Position returns the index the next batch of d starts at.
func (c *Cursor) Position(d *Dataset) int {
	if c.pos >= d.Len() {
		return 0
	}
	return c.pos
}

func (c *Cursor) Reset() {
	c.pos = 0
}
