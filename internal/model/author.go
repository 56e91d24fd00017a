package model

import "errors"

// AuthorKind discriminates who wrote a comment.
type AuthorKind string

const (
	AuthorUser      AuthorKind = "user"
	AuthorAnonymous AuthorKind = "anonymous"
	AuthorGuest     AuthorKind = "guest"
)

// Author is the tagged author descriptor carried on every comment.
// Exactly one variant is populated: UserID for "user", GuestName for "guest",
// neither for "anonymous".
type Author struct {
	Kind      AuthorKind `json:"kind"`
	UserID    string     `json:"user_id,omitempty"`
	GuestName string     `json:"guest_name,omitempty"`
}

var ErrInvalidAuthor = errors.New("invalid author descriptor")

// Validate checks that the descriptor is internally consistent.
func (a Author) Validate() error {
	switch a.Kind {
	case AuthorUser:
		if a.UserID == "" || a.GuestName != "" {
			return ErrInvalidAuthor
		}
	case AuthorAnonymous:
		if a.UserID != "" || a.GuestName != "" {
			return ErrInvalidAuthor
		}
	case AuthorGuest:
		if a.GuestName == "" || a.UserID != "" {
			return ErrInvalidAuthor
		}
	default:
		return ErrInvalidAuthor
	}
	return nil
}

// DisplayName returns the name shown next to the comment.
func (a Author) DisplayName() string {
	switch a.Kind {
	case AuthorGuest:
		return a.GuestName
	case AuthorAnonymous:
		return "Anonymous"
	case AuthorUser:
		return a.UserID
	default:
		return ""
	}
}

// IdentityKind discriminates voter identities.
type IdentityKind string

const (
	IdentityUser   IdentityKind = "user"
	IdentityDevice IdentityKind = "device"
)

// Identity is the key a reaction or helpful vote is held under: an
// authenticated user id, or a per-device id for anonymous/guest voters.
type Identity struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value"`
}

var ErrInvalidIdentity = errors.New("invalid voter identity")

func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, Value: userID}
}

func DeviceIdentity(deviceID string) Identity {
	return Identity{Kind: IdentityDevice, Value: deviceID}
}

func (i Identity) Validate() error {
	switch i.Kind {
	case IdentityUser, IdentityDevice:
		if i.Value == "" {
			return ErrInvalidIdentity
		}
	default:
		return ErrInvalidIdentity
	}
	return nil
}
