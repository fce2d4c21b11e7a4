// Package wireproto implements the IRC wire grammar: parsing,
// validation, and serialisation of message lines, independent of any
// transport. It plays the role that styxproto played for the 9P
// teacher this module is built from — a sans-I/O codec that a
// transport feeds bytes into and a command router reads parsed
// messages out of.
//
// Parsing is split into a borrowed form (MessageRef, valid only until
// the Scanner advances past it) and an owned form (Message, safe to
// retain). Handlers and channel actors that need to keep a message
// past the current read must call MessageRef.Clone.
package wireproto
