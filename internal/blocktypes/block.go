// Package blocktypes defines the header/content/block schema shared by
// proposer and voter blocks, and the transient Superblock used only during
// mining. Content is a Go sum type built from an explicit Kind discriminant
// plus pattern-matching accessors, rather than dynamic dispatch.
package blocktypes

import (
	"fmt"

	"github.com/prism-labs/prismd/internal/codec"
	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/txtypes"
)

// Header is the block header shared by every sortitioned block variant. Its
// merkle_root commits to all m+1 superblock contents, which is why proposer
// and voter blocks share one schema.
type Header struct {
	ParentHash  crypto.H256
	Nonce       uint32
	Difficulty  crypto.H256
	Timestamp   int64 // monotonic microseconds
	MerkleRoot  crypto.H256
	MinerID     int32
}

// Encode writes the canonical header encoding.
func (h *Header) Encode() ([]byte, error) {
	w := codec.NewWriter(32*3 + 16)
	w.WriteHash256(h.ParentHash)
	w.WriteUint32(h.Nonce)
	w.WriteHash256(h.Difficulty)
	w.WriteInt64(h.Timestamp)
	w.WriteHash256(h.MerkleRoot)
	w.WriteUint32(uint32(h.MinerID))
	return w.Bytes(), nil
}

// Hash returns the block's identifying hash: the SHA-256 of the header's
// canonical encoding. A block's hash is always its header's hash.
func (h *Header) Hash() (crypto.H256, error) {
	return crypto.HashOf(h)
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r *codec.Reader) (*Header, error) {
	parent, err := r.ReadHash256()
	if err != nil {
		return nil, fmt.Errorf("decode header parent hash: %w", err)
	}
	nonce, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("decode header nonce: %w", err)
	}
	difficulty, err := r.ReadHash256()
	if err != nil {
		return nil, fmt.Errorf("decode header difficulty: %w", err)
	}
	ts, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("decode header timestamp: %w", err)
	}
	root, err := r.ReadHash256()
	if err != nil {
		return nil, fmt.Errorf("decode header merkle root: %w", err)
	}
	minerID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("decode header miner id: %w", err)
	}
	return &Header{
		ParentHash: parent,
		Nonce:      nonce,
		Difficulty: difficulty,
		Timestamp:  ts,
		MerkleRoot: root,
		MinerID:    int32(minerID),
	}, nil
}

// Kind discriminates the two Content variants.
type Kind uint8

const (
	// KindProposer tags a Content carrying proposer data.
	KindProposer Kind = 0
	// KindVoter tags a Content carrying voter data.
	KindVoter Kind = 1
)

// Content is the tagged payload of a block: either Proposer or Voter data.
// Exactly one of the two embedded pointers is non-nil, selected by Kind.
type Content struct {
	Kind     Kind
	Proposer *ProposerContent
	Voter    *VoterContent
}

// ProposerContent carries a proposer block's references and transactions.
type ProposerContent struct {
	ParentHash   crypto.H256
	ProposerRefs []crypto.H256
	Transactions []txtypes.SignedTransaction
}

// VoterContent carries a voter block's chain number and votes.
type VoterContent struct {
	ParentHash crypto.H256
	ChainNum   uint32
	Votes      []crypto.H256
}

// NewProposerContent builds a Content tagged as Proposer.
func NewProposerContent(parent crypto.H256, refs []crypto.H256, txs []txtypes.SignedTransaction) Content {
	return Content{Kind: KindProposer, Proposer: &ProposerContent{ParentHash: parent, ProposerRefs: refs, Transactions: txs}}
}

// NewVoterContent builds a Content tagged as Voter.
func NewVoterContent(parent crypto.H256, chainNum uint32, votes []crypto.H256) Content {
	return Content{Kind: KindVoter, Voter: &VoterContent{ParentHash: parent, ChainNum: chainNum, Votes: votes}}
}

// ParentHash returns the parent reference common to both content variants.
func (c *Content) ParentHash() crypto.H256 {
	if c.Kind == KindProposer {
		return c.Proposer.ParentHash
	}
	return c.Voter.ParentHash
}

// Encode writes the canonical content encoding, tag byte first.
func (c *Content) Encode() ([]byte, error) {
	w := codec.NewWriter(128)
	w.WriteUint8(uint8(c.Kind))
	switch c.Kind {
	case KindProposer:
		w.WriteHash256(c.Proposer.ParentHash)
		w.WriteCount(len(c.Proposer.ProposerRefs))
		for _, ref := range c.Proposer.ProposerRefs {
			w.WriteHash256(ref)
		}
		w.WriteCount(len(c.Proposer.Transactions))
		for i := range c.Proposer.Transactions {
			b, err := c.Proposer.Transactions[i].Encode()
			if err != nil {
				return nil, fmt.Errorf("encode proposer tx %d: %w", i, err)
			}
			w.WriteRaw(b)
		}
	case KindVoter:
		w.WriteHash256(c.Voter.ParentHash)
		w.WriteUint32(c.Voter.ChainNum)
		w.WriteCount(len(c.Voter.Votes))
		for _, v := range c.Voter.Votes {
			w.WriteHash256(v)
		}
	default:
		return nil, fmt.Errorf("unknown content kind %d", c.Kind)
	}
	return w.Bytes(), nil
}

// Hash returns the content's own content hash, used as a Merkle leaf when
// sortitioning a superblock.
func (c *Content) Hash() (crypto.H256, error) {
	return crypto.HashOf(c)
}

// DecodeContent reads a Content from r.
func DecodeContent(r *codec.Reader) (*Content, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("decode content tag: %w", err)
	}
	switch Kind(tag) {
	case KindProposer:
		parent, err := r.ReadHash256()
		if err != nil {
			return nil, fmt.Errorf("decode proposer parent: %w", err)
		}
		nRefs, err := r.ReadCount(codec.MaxSequenceLen)
		if err != nil {
			return nil, fmt.Errorf("decode proposer refs count: %w", err)
		}
		refs := make([]crypto.H256, nRefs)
		for i := 0; i < nRefs; i++ {
			refs[i], err = r.ReadHash256()
			if err != nil {
				return nil, fmt.Errorf("decode proposer ref %d: %w", i, err)
			}
		}
		txs, err := txtypes.DecodeSignedTransactions(r)
		if err != nil {
			return nil, fmt.Errorf("decode proposer txs: %w", err)
		}
		content := NewProposerContent(parent, refs, txs)
		return &content, nil
	case KindVoter:
		parent, err := r.ReadHash256()
		if err != nil {
			return nil, fmt.Errorf("decode voter parent: %w", err)
		}
		chainNum, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decode voter chain num: %w", err)
		}
		nVotes, err := r.ReadCount(codec.MaxSequenceLen)
		if err != nil {
			return nil, fmt.Errorf("decode voter votes count: %w", err)
		}
		votes := make([]crypto.H256, nVotes)
		for i := 0; i < nVotes; i++ {
			votes[i], err = r.ReadHash256()
			if err != nil {
				return nil, fmt.Errorf("decode voter vote %d: %w", i, err)
			}
		}
		content := NewVoterContent(parent, chainNum, votes)
		return &content, nil
	default:
		return nil, fmt.Errorf("unknown content tag %d", tag)
	}
}

// Block is a fully-formed, sortitioned, on-wire block: a header, its
// content, and the Merkle proof binding that content to the header's
// committed merkle_root.
type Block struct {
	Header         Header
	Content        Content
	SortitionProof []crypto.H256
	SortitionIndex int // position of Content within the superblock's m+1 slots
}

// Hash returns the block's identifying hash (the header's hash).
func (b *Block) Hash() (crypto.H256, error) {
	return b.Header.Hash()
}

// Encode writes the canonical block encoding.
func (b *Block) Encode() ([]byte, error) {
	headerBytes, err := b.Header.Encode()
	if err != nil {
		return nil, err
	}
	contentBytes, err := b.Content.Encode()
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter(len(headerBytes) + len(contentBytes) + 64)
	w.WriteRaw(headerBytes)
	w.WriteRaw(contentBytes)
	w.WriteCount(len(b.SortitionProof))
	for _, h := range b.SortitionProof {
		w.WriteHash256(h)
	}
	w.WriteCount(b.SortitionIndex)
	return w.Bytes(), nil
}

// DecodeBlock reads a Block from r.
func DecodeBlock(r *codec.Reader) (*Block, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	content, err := DecodeContent(r)
	if err != nil {
		return nil, err
	}
	nProof, err := r.ReadCount(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode sortition proof count: %w", err)
	}
	proof := make([]crypto.H256, nProof)
	for i := 0; i < nProof; i++ {
		proof[i], err = r.ReadHash256()
		if err != nil {
			return nil, fmt.Errorf("decode sortition proof %d: %w", i, err)
		}
	}
	idx, err := r.ReadCount(codec.MaxSequenceLen)
	if err != nil {
		return nil, fmt.Errorf("decode sortition index: %w", err)
	}
	return &Block{Header: *header, Content: *content, SortitionProof: proof, SortitionIndex: idx}, nil
}

// Superblock is the transient, mining-only artefact that packages all m+1
// candidate contents under one header. It never appears on the wire:
// index 0 is a Proposer content; indices 1..m are Voter contents for
// chains 1..m.
type Superblock struct {
	Header   Header
	Contents []Content // length m+1
}
