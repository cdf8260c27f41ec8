package domain

import "errors"

var (
	ErrScreenNotFound     = errors.New("screen not found")
	ErrScreenNotConnected = errors.New("not connected")
	ErrPeerClosed         = errors.New("peer closed")
	ErrPeerSlow           = errors.New("peer send buffer full")
)
