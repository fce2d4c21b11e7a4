package channel

import "errors"

var (
	errAlreadyMember = errors.New("channel: already a member")
	errChannelFull    = errors.New("channel: full")
	errBadKey         = errors.New("channel: bad key")
	errInviteOnly     = errors.New("channel: invite only")
	errBanned         = errors.New("channel: banned")
	errNotOnChannel   = errors.New("channel: not on channel")
	errChanopNeeded   = errors.New("channel: channel operator privileges needed")
	errNoSuchMode     = errors.New("channel: unknown mode")
	errModeAuthority  = errors.New("channel: insufficient authority for mode change")
)
