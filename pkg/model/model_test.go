// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

func TestParseAgentTypeKnown(t *testing.T) {
	at, known := ParseAgentType("architect")
	if !known {
		t.Fatalf("expected architect to be known")
	}
	if at != AgentArchitect {
		t.Fatalf("got %q", at)
	}
}

func TestParseAgentTypeUnknownWarnsNotErrors(t *testing.T) {
	at, known := ParseAgentType("some-future-agent")
	if known {
		t.Fatalf("expected unknown agent type to report known=false")
	}
	if at != "some-future-agent" {
		t.Fatalf("expected the raw name to be preserved, got %q", at)
	}
}

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 0.5, 1: 1, 2: 1}
	for in, want := range cases {
		if got := Clamp01(in); got != want {
			t.Errorf("Clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestClampImportance(t *testing.T) {
	cases := map[int]int{0: 5, -3: 1, 1: 1, 5: 5, 10: 10, 20: 10}
	for in, want := range cases {
		if got := ClampImportance(in); got != want {
			t.Errorf("ClampImportance(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	in := map[string]any{"source": "conversation", "count": float64(3)}
	raw, err := EncodeMetadata(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := raw.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["source"] != "conversation" {
		t.Errorf("got %#v", out)
	}
}

func TestEmptyMetadataRoundTrip(t *testing.T) {
	raw, err := EncodeMetadata(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if raw != "" {
		t.Fatalf("expected empty metadata to encode to empty string, got %q", raw)
	}
	out, err := raw.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty map, got %#v", out)
	}
}
