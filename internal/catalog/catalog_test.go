package catalog

import "testing"

func TestGet(t *testing.T) {
	cat := New(nil)

	wt, ok := cat.Get("vkr")
	if !ok {
		t.Fatal("vkr should exist")
	}
	if wt.BasePrice != 32000 {
		t.Fatalf("vkr base price = %d, want 32000", wt.BasePrice)
	}
	if wt.Name == "" || wt.Icon == "" || len(wt.Examples) == 0 {
		t.Fatalf("vkr is missing display fields: %+v", wt)
	}

	if _, ok := cat.Get("phd"); ok {
		t.Fatal("unknown key should not resolve")
	}
}

func TestOverridesShadowBasePrice(t *testing.T) {
	cat := New(map[string]int{"self": 2000, "phd": 9000, "vkr": -1})

	if wt, _ := cat.Get("self"); wt.BasePrice != 2000 {
		t.Fatalf("override not applied: %d", wt.BasePrice)
	}
	if wt, _ := cat.Get("vkr"); wt.BasePrice != 32000 {
		t.Fatalf("non-positive override must be ignored, got %d", wt.BasePrice)
	}
	if got := cat.Overrides(); len(got) != 1 || got["self"] != 2000 {
		t.Fatalf("overrides = %v, want only self=2000", got)
	}
}

func TestSetBasePrice(t *testing.T) {
	cat := New(nil)

	if !cat.SetBasePrice("master", 50000) {
		t.Fatal("valid override rejected")
	}
	if wt, _ := cat.Get("master"); wt.BasePrice != 50000 {
		t.Fatalf("master base price = %d, want 50000", wt.BasePrice)
	}
	if cat.SetBasePrice("phd", 1000) {
		t.Fatal("unknown key accepted")
	}
	if cat.SetBasePrice("self", 0) {
		t.Fatal("zero price accepted")
	}

	// All must reflect overrides too.
	for _, wt := range cat.All() {
		if wt.Key == "master" && wt.BasePrice != 50000 {
			t.Fatalf("All did not apply override: %d", wt.BasePrice)
		}
	}
}

func TestAllOrder(t *testing.T) {
	all := New(nil).All()
	if len(all) != 5 {
		t.Fatalf("expected 5 work types, got %d", len(all))
	}
	want := []string{"self", "course_theory", "course_empirical", "vkr", "master"}
	for i, key := range want {
		if all[i].Key != key {
			t.Fatalf("position %d: got %q, want %q", i, all[i].Key, key)
		}
	}
}

func TestUpsells(t *testing.T) {
	if u, ok := GetUpsell("prez"); !ok || u.Price != 2000 {
		t.Fatalf("prez = %+v, %v", u, ok)
	}
	if u, ok := GetUpsell("speech"); !ok || u.Price != 1000 {
		t.Fatalf("speech = %+v, %v", u, ok)
	}
	if _, ok := GetUpsell("plagiarism"); ok {
		t.Fatal("unknown upsell resolved")
	}
	if len(Upsells()) != 2 {
		t.Fatalf("expected 2 upsells, got %d", len(Upsells()))
	}
}

func TestFAQ(t *testing.T) {
	items := FAQ()
	if len(items) != 6 {
		t.Fatalf("expected 6 FAQ entries, got %d", len(items))
	}
	for i, item := range items {
		if item.Question == "" || item.Answer == "" {
			t.Fatalf("FAQ entry %d is incomplete: %+v", i, item)
		}
	}
}
