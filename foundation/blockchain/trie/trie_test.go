package trie_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/trie"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type record struct {
	Balance uint64   `json:"balance"`
	Tags    []string `json:"tags"`
}

// =============================================================================

func Test_PutGet(t *testing.T) {
	type table struct {
		name  string
		key   string
		value record
	}

	tt := []table{
		{name: "short", key: "a", value: record{Balance: 10}},
		{name: "long", key: "04abcdef0123", value: record{Balance: 1234, Tags: []string{"x", "y"}}},
		{name: "empty", key: "", value: record{Balance: 1}},
	}

	t.Log("Given the need to store and retrieve values in a trie.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling key %q.", testID, tst.key)
			{
				f := func(t *testing.T) {
					tr := trie.New()

					if err := tr.Put(tst.key, tst.value); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to put value: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to put value.", success, testID)

					var got record
					found, err := tr.Get(tst.key, &got)
					if err != nil || !found {
						t.Fatalf("\t%s\tTest %d:\tShould be able to get value: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to get value.", success, testID)

					if got.Balance != tst.value.Balance || len(got.Tags) != len(tst.value.Tags) {
						t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, tst.value)
						t.Fatalf("\t%s\tTest %d:\tShould get back the same value.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the same value.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_GetMissing(t *testing.T) {
	tr := trie.New()
	if err := tr.Put("abc", 1); err != nil {
		t.Fatalf("Should be able to put value: %v", err)
	}

	var v int
	for _, key := range []string{"ab", "abd", "x", "abcd"} {
		found, err := tr.Get(key, &v)
		if err != nil {
			t.Fatalf("Should not get an error for key %q: %v", key, err)
		}
		if found {
			t.Fatalf("Should not find a value for key %q.", key)
		}
	}
}

func Test_DeepCopyOnRead(t *testing.T) {
	tr := trie.New()
	if err := tr.Put("acct", record{Balance: 1, Tags: []string{"a"}}); err != nil {
		t.Fatalf("Should be able to put value: %v", err)
	}

	var first record
	if _, err := tr.Get("acct", &first); err != nil {
		t.Fatalf("Should be able to get value: %v", err)
	}
	first.Balance = 99
	first.Tags[0] = "mutated"

	var second record
	if _, err := tr.Get("acct", &second); err != nil {
		t.Fatalf("Should be able to get value: %v", err)
	}

	if second.Balance != 1 || second.Tags[0] != "a" {
		t.Logf("got: %+v", second)
		t.Fatalf("Should not be able to mutate trie state through a returned value.")
	}
}

func Test_RootHash(t *testing.T) {
	tr := trie.New()
	if tr.RootHash() == "" {
		t.Fatalf("Should have a root hash for an empty trie.")
	}

	if trie.New().RootHash() != tr.RootHash() {
		t.Fatalf("Should get the same root hash for two empty tries.")
	}

	seen := map[string]bool{tr.RootHash(): true}
	puts := []struct {
		key   string
		value int
	}{
		{"testVal", 1234},
		{"testVal", 5678},
		{"test", 1},
		{"other", 1},
	}

	for _, p := range puts {
		if err := tr.Put(p.key, p.value); err != nil {
			t.Fatalf("Should be able to put value: %v", err)
		}
		if seen[tr.RootHash()] {
			t.Fatalf("Should generate a new root hash after putting %q=%d.", p.key, p.value)
		}
		seen[tr.RootHash()] = true
	}
}

func Test_Copy(t *testing.T) {
	tr := trie.New()
	if err := tr.Put("key", 1); err != nil {
		t.Fatalf("Should be able to put value: %v", err)
	}

	cp := tr.Copy()
	if cp.RootHash() != tr.RootHash() {
		t.Fatalf("Should get the same root hash for a copy.")
	}

	if err := cp.Put("key", 2); err != nil {
		t.Fatalf("Should be able to put value: %v", err)
	}
	if err := cp.Put("kez", 3); err != nil {
		t.Fatalf("Should be able to put value: %v", err)
	}

	var v int
	if _, err := tr.Get("key", &v); err != nil || v != 1 {
		t.Fatalf("Should not change the original through the copy, got %d.", v)
	}

	if found, _ := tr.Get("kez", &v); found {
		t.Fatalf("Should not add keys to the original through the copy.")
	}

	if cp.RootHash() == tr.RootHash() {
		t.Fatalf("Should diverge root hashes after writing to the copy.")
	}
}
