package digest_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/clinicaudit/ledger/foundation/ledger/digest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Canonical(t *testing.T) {
	type metric struct {
		Unit      string `json:"unit"`
		HeartRate int    `json:"heartRate"`
	}

	t.Log("Given the need to serialize payloads deterministically.")
	{
		t.Logf("\tTest 0:\tWhen handling a struct and a map with the same fields.")
		{
			s, err := digest.Canonical(metric{Unit: "bpm", HeartRate: 72})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to serialize the struct: %v", failed, err)
			}

			m, err := digest.Canonical(map[string]any{"heartRate": 72, "unit": "bpm"})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to serialize the map: %v", failed, err)
			}

			exp := `{"heartRate":72,"unit":"bpm"}`
			if string(s) != exp || string(m) != exp {
				t.Logf("\t%s\tTest 0:\tgot: %s / %s", failed, s, m)
				t.Logf("\t%s\tTest 0:\texp: %s", failed, exp)
				t.Fatalf("\t%s\tTest 0:\tShould produce sorted keys.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould produce sorted keys.", success)
		}

		t.Logf("\tTest 1:\tWhen handling raw JSON with whitespace and large numbers.")
		{
			raw := json.RawMessage(`{ "b": 12345678901234567890, "a": "<x&y>" }`)
			got, err := digest.Canonical(raw)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to serialize raw JSON: %v", failed, err)
			}

			exp := `{"a":"<x&y>","b":12345678901234567890}`
			if string(got) != exp {
				t.Logf("\t%s\tTest 1:\tgot: %s", failed, got)
				t.Logf("\t%s\tTest 1:\texp: %s", failed, exp)
				t.Fatalf("\t%s\tTest 1:\tShould keep number text and skip html escaping.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep number text and skip html escaping.", success)
		}

		t.Logf("\tTest 2:\tWhen handling an unrepresentable value.")
		{
			if _, err := digest.Canonical(make(chan int)); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a channel.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a channel.", success)
		}
	}
}

func Test_Hash(t *testing.T) {
	t.Log("Given the need to fingerprint values.")
	{
		h1, err := digest.Hash(map[string]int{"heartRate": 72})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to hash: %v", failed, err)
		}
		h2, _ := digest.Hash(map[string]int{"heartRate": 72})
		h3, _ := digest.Hash(map[string]int{"heartRate": 73})

		if h1 != h2 {
			t.Fatalf("\t%s\tShould get the same digest for the same value.", failed)
		}
		t.Logf("\t%s\tShould get the same digest for the same value.", success)

		if h1 == h3 {
			t.Fatalf("\t%s\tShould get a different digest for a different value.", failed)
		}
		t.Logf("\t%s\tShould get a different digest for a different value.", success)

		if !digest.IsHex(h1) || strings.ToLower(h1) != h1 {
			t.Fatalf("\t%s\tShould get a lower-case hex digest: %s", failed, h1)
		}
		t.Logf("\t%s\tShould get a lower-case hex digest.", success)

		if !digest.IsHex(digest.ZeroHash) || strings.Trim(digest.ZeroHash, "0") != "" {
			t.Fatalf("\t%s\tShould have an all zero sentinel.", failed)
		}
		t.Logf("\t%s\tShould have an all zero sentinel.", success)

		const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
		if got := digest.SumString("abc"); got != abc {
			t.Logf("\t%s\tgot: %s", failed, got)
			t.Logf("\t%s\texp: %s", failed, abc)
			t.Fatalf("\t%s\tShould match the sha256 test vector.", failed)
		}
		t.Logf("\t%s\tShould match the sha256 test vector.", success)
	}
}
