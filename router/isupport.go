package router

import (
	"strconv"
	"strings"

	"github.com/sid3xyz/slircd/config"
)

// isupportChunkLen mirrors namesChunkLen's reasoning in the session
// package: keep each RPL_ISUPPORT line comfortably under the wire
// limit without counting bytes exactly.
const isupportChunkLen = 12

// BuildISUPPORT renders cfg's ISUPPORT tokens, chunked into groups
// small enough for one 005 line each. Token shape (bare key, or
// KEY=value) follows the same KEY/value pairing
// slirc-proto's isupport parser reads on the client side
// (original_source/crates/slirc-proto/src/isupport/parser.rs); this
// is its server-side mirror, producing rather than consuming the
// token list.
func BuildISUPPORT(cfg *config.Config) [][]string {
	tokens := []string{
		"NETWORK=" + token(cfg.Network),
		"CASEMAPPING=" + cfg.CaseMapping.String(),
		"CHANTYPES=#&",
		"CHANMODES=" + cfg.ISUPPORTChanModes(),
		"PREFIX=" + cfg.ISUPPORTPrefix(),
		"NICKLEN=" + strconv.Itoa(cfg.NickLen),
		"CHANNELLEN=" + strconv.Itoa(cfg.ChannelLen),
		"TOPICLEN=" + strconv.Itoa(cfg.TopicLen),
		"MAXTARGETS=" + strconv.Itoa(cfg.MaxTargets),
		"MODES=4",
		"AWAYLEN=200",
		"KICKLEN=200",
		"EXCEPTS",
		"INVEX",
		"FNC",
		"SAFELIST",
		"ELIST=CTU",
		"CHATHISTORY=100",
		"WHOX",
	}

	var chunks [][]string
	for i := 0; i < len(tokens); i += isupportChunkLen {
		end := i + isupportChunkLen
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, append([]string(nil), tokens[i:end]...))
	}
	return chunks
}

func token(s string) string {
	if s == "" {
		return "slircd"
	}
	return strings.ReplaceAll(s, " ", "_")
}
