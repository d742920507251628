package domain

import "testing"

func TestNewChainIsEmpty(t *testing.T) {
	c := NewChain()
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if c.Head() != nil {
		t.Error("Head() should be nil for an empty chain")
	}
	if c.Get(0) != nil {
		t.Error("Get(0) should be nil for an empty chain")
	}
}

func TestAppendAndHead(t *testing.T) {
	c := NewChain()
	b0 := &Block{SignedHeader: SignedBlockHeader{Header: BlockHeader{Number: 0}}}
	b1 := &Block{SignedHeader: SignedBlockHeader{Header: BlockHeader{Number: 1}}}

	c.Append(b0)
	if c.Head() != b0 {
		t.Error("Head() should return the only appended block")
	}

	c.Append(b1)
	if c.Head() != b1 {
		t.Error("Head() should return the most recently appended block")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestGetByNumber(t *testing.T) {
	c := NewChain()
	b0 := &Block{SignedHeader: SignedBlockHeader{Header: BlockHeader{Number: 0}}}
	b1 := &Block{SignedHeader: SignedBlockHeader{Header: BlockHeader{Number: 1}}}
	c.Append(b0)
	c.Append(b1)

	if c.Get(0) != b0 {
		t.Error("Get(0) should return the genesis block")
	}
	if c.Get(1) != b1 {
		t.Error("Get(1) should return the second block")
	}
	if c.Get(2) != nil {
		t.Error("Get(2) should be nil when out of range")
	}
}
