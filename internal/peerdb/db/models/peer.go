package models

import (
	"github.com/tansive/peerstore/internal/common/uuid"
)

// Peer is one row of the peer table.
type Peer struct {
	Guid   []byte `db:"guid" json:"guid" yaml:"guid"`
	ID     string `db:"id" json:"id" yaml:"id"`
	UUID   []byte `db:"uuid" json:"uuid" yaml:"uuid"`
	PK     []byte `db:"pk" json:"pk" yaml:"pk"`
	User   []byte `db:"user" json:"user,omitempty" yaml:"user,omitempty"`
	Info   string `db:"info" json:"info" yaml:"info"`
	Status *int64 `db:"status" json:"status,omitempty" yaml:"status,omitempty"`
}

// GuidString returns the guid in canonical UUID form.
func (p *Peer) GuidString() string {
	return uuid.GuidString(p.Guid)
}
