package service

import "dm-service/dto"

// UserClaims are the identity claims a connection authenticated with.
type UserClaims struct {
	Id       uint
	Email    string
	Verified bool
}

// Session is the per-connection state. A connection is Authenticated once the
// handshake passed and InDialog while Dialog is non-nil; the presence
// coordinator's transitions are the only place Dialog changes.
type Session struct {
	User   UserClaims
	Dialog *dto.Dialog
}

func (s *Session) InDialog() bool {
	return s != nil && s.Dialog != nil
}
