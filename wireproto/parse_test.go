package wireproto

import (
	"bytes"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"NICK alice",
		"USER u 0 * :Alice Example",
		":alice!u@host PRIVMSG #ops :hello there",
		"@time=2021-01-01T00:00:00.000Z;msgid=abc :alice!u@host PRIVMSG #ops :hi",
		"PING :server.example",
		"001 alice :Welcome to the ExampleNet Network, alice",
		"JOIN #ops",
		"PRIVMSG alice ::-)",
		"PRIVMSG alice :",
	}
	for _, line := range cases {
		ref, err := Parse([]byte(line))
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		owned := ref.Clone()
		out := Serialize(owned)
		ref2, err := Parse(out)
		if err != nil {
			t.Fatalf("reparse %q (from %q): %v", out, line, err)
		}
		if !owned.Equal(ref2.Clone()) {
			t.Errorf("round trip mismatch: %q -> %q -> not equal", line, out)
		}
	}
}

func TestParseTagEscaping(t *testing.T) {
	ref, err := Parse([]byte(`@key=a\sb\:c\\d :nick PRIVMSG #c :hi`))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := ref.Tag("key")
	if !ok {
		t.Fatal("tag 'key' not found")
	}
	if want := "a b;c\\d"; v != want {
		t.Errorf("tag value = %q, want %q", v, want)
	}
}

func TestParseLastParamColonRules(t *testing.T) {
	ref, err := Parse([]byte("PRIVMSG #c hello"))
	if err != nil {
		t.Fatal(err)
	}
	if ref.NumParams() != 2 || string(ref.Param(1)) != "hello" {
		t.Fatalf("unexpected params: %d %q", ref.NumParams(), ref.Param(1))
	}

	ref, err = Parse([]byte("PRIVMSG #c :hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if string(ref.Param(1)) != "hello world" {
		t.Fatalf("trailing param = %q, want %q", ref.Param(1), "hello world")
	}
}

func TestSerializeColonDiscipline(t *testing.T) {
	m := &Message{Command: "PRIVMSG", Params: []string{"#c", "hello world"}}
	out := Serialize(m)
	if !bytes.Contains(out, []byte(":hello world")) {
		t.Errorf("serialize did not colon-prefix a param with a space: %q", out)
	}

	m = &Message{Command: "PRIVMSG", Params: []string{"#c", ""}}
	out = Serialize(m)
	if !bytes.HasSuffix(out, []byte(":")) {
		t.Errorf("serialize did not colon-prefix an empty last param: %q", out)
	}

	m = &Message{Command: "JOIN", Params: []string{"#c"}}
	out = Serialize(m)
	if bytes.Contains(out, []byte(":")) {
		t.Errorf("serialize colon-prefixed a param that needed no colon: %q", out)
	}
}

func TestPrefixParsing(t *testing.T) {
	ref, err := Parse([]byte(":alice!user@host.example PRIVMSG #c :hi"))
	if err != nil {
		t.Fatal(err)
	}
	p := ref.Prefix()
	if p == nil || p.Nick != "alice" || p.User != "user" || p.Host != "host.example" {
		t.Fatalf("unexpected prefix: %+v", p)
	}

	ref, err = Parse([]byte(":irc.example.net 001 alice :welcome"))
	if err != nil {
		t.Fatal(err)
	}
	p = ref.Prefix()
	if p == nil || !p.IsServer() || p.Server != "irc.example.net" {
		t.Fatalf("unexpected server prefix: %+v", p)
	}
}

func TestMessageTooLong(t *testing.T) {
	s := NewScannerSize(bytes.NewReader(bytes.Repeat([]byte("a"), 20000)), MinBufSize)
	if !s.Next() {
		t.Fatalf("Next() = false, Err() = %v", s.Err())
	}
	_, err := s.Message()
	var perr *ParseError
	if err == nil {
		t.Fatal("expected MessageTooLong error")
	} else if pe, ok := err.(*ParseError); !ok || pe.Err != ErrMessageTooLong {
		perr = pe
		t.Fatalf("got error %v (%+v), want ErrMessageTooLong", err, perr)
	}
}

func TestScannerBareLF(t *testing.T) {
	s := NewScanner(bytes.NewReader([]byte("NICK alice\nUSER u 0 * :Alice\r\n")))
	var cmds []string
	for s.Next() {
		ref, err := s.Message()
		if err != nil {
			t.Fatalf("unexpected parse error: %v", err)
		}
		cmds = append(cmds, ref.Command())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if len(cmds) != 2 || cmds[0] != "NICK" || cmds[1] != "USER" {
		t.Fatalf("unexpected commands: %v", cmds)
	}
}

func TestCaseMappingFold(t *testing.T) {
	m := CaseMappingRFC1459
	if !m.Equal("#Foo{Bar}", "#foo[bar]") {
		t.Error("rfc1459 case mapping should fold {}|^ to []\\~")
	}
	a := CaseMappingASCII
	if a.Equal("#Foo{Bar}", "#foo[bar]") {
		t.Error("ascii case mapping should not fold {}|^ to []\\~")
	}
	if !a.Equal("#FOO", "#foo") {
		t.Error("ascii case mapping should still fold ASCII letters")
	}
}
