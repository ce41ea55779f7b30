package block

import "testing"

func TestNewComputesVerifiableHash(t *testing.T) {
	b := New(0, ZeroHash, 1000, Text{Text: "hello"})
	if !b.Verify() {
		t.Fatalf("expected freshly built block to verify")
	}
	if !b.IsGenesis() {
		t.Fatalf("expected sequence 0 with zero prev_hash to be genesis")
	}
}

func TestVerifyDetectsTamperedContent(t *testing.T) {
	b := New(0, ZeroHash, 1000, Text{Text: "hello"})
	b.Content = Text{Text: "tampered"}
	if b.Verify() {
		t.Fatalf("expected tampered content to fail verification")
	}
}

func TestComputeHashSensitiveToEveryField(t *testing.T) {
	base := ComputeHash(ZeroHash, 0, 1000, Text{Text: "hello"})

	var otherPrev Hash
	otherPrev[0] = 1
	if ComputeHash(otherPrev, 0, 1000, Text{Text: "hello"}) == base {
		t.Fatalf("expected prev_hash change to change digest")
	}
	if ComputeHash(ZeroHash, 1, 1000, Text{Text: "hello"}) == base {
		t.Fatalf("expected sequence change to change digest")
	}
	if ComputeHash(ZeroHash, 0, 1001, Text{Text: "hello"}) == base {
		t.Fatalf("expected timestamp change to change digest")
	}
	if ComputeHash(ZeroHash, 0, 1000, Text{Text: "goodbye"}) == base {
		t.Fatalf("expected content change to change digest")
	}
}

func TestContentRoundTripsThroughCanonicalEncoding(t *testing.T) {
	cases := []Content{
		Text{Text: "plain note", Tags: []string{"a", "b"}},
		File{Path: "/tmp/x.go", Op: FileWrite, Content: "package main", HasBody: true},
		File{Path: "/tmp/x.go", Op: FileDelete},
		Tool{ToolName: "grep", Args: "-n foo", Result: "3 matches"},
		Decision{Decision: "use LL(1)", Rationale: "simpler grammar"},
		Session{ID: "daemon-cogmem", Kind: SessionStart},
		Boundary{Kind: BoundaryTopic},
	}

	for _, c := range cases {
		encoded := Canonical(c)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%#v): %v", c, err)
		}
		if Canonical(decoded) == nil {
			t.Fatalf("decoded content failed to re-encode")
		}
		reencoded := Canonical(decoded)
		if string(reencoded) != string(encoded) {
			t.Fatalf("round trip mismatch for %#v: got %x want %x", c, reencoded, encoded)
		}
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected error decoding empty payload")
	}
	if _, err := Decode([]byte{byte(TagText)}); err == nil {
		t.Fatalf("expected error decoding truncated text payload")
	}
}
