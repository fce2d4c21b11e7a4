package wireproto

// Wire limits: 512 bytes of message body, plus up to 8,191
// bytes of IRCv3 tags (of which 4,094 may be client-contributed, i.e.
// keys prefixed with '+').
const (
	MaxBodyLen       = 512
	MaxTagLen        = 8191
	MaxClientTagLen  = 4094
	MaxParams        = 15
	DefaultBufSize    = 8 * 1024
	MinBufSize        = 512
	MaxLineLen        = MaxBodyLen + MaxTagLen + 2 // +2 for the leading '@' and the space before the body
)
