package flattener

import "testing"

func mustDecode(t *testing.T, raw string) Value {
	t.Helper()
	v, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%q) error: %v", raw, err)
	}
	return v
}

func mustString(t *testing.T, v Value) string {
	t.Helper()
	s, ok := v.AsString()
	if !ok {
		t.Fatalf("value kind = %v, want string", v.Kind())
	}
	return s
}

func TestLookup_ExactBeforeOtherCasings(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
		want string
	}{
		{"exact lower wins", `{"VoucherNumber": "A1", "vouchernumber": "A2"}`, "vouchernumber", "A2"},
		{"exact mixed wins", `{"vouchernumber": "A2", "VoucherNumber": "A1"}`, "VoucherNumber", "A1"},
		{"upper before lower", `{"vouchernumber": "lower", "VOUCHERNUMBER": "upper"}`, "VoucherNumber", "upper"},
		{"lower when only lower", `{"vouchernumber": "lower"}`, "VOUCHERNUMBER", "lower"},
		{"upper from lower key", `{"DATE": "20240101"}`, "date", "20240101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(mustDecode(t, tt.doc), tt.key)
			if !ok {
				t.Fatalf("Lookup(%q) found nothing", tt.key)
			}
			if s := mustString(t, got); s != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.key, s, tt.want)
			}
		})
	}
}

func TestLookup_CandidateOrder(t *testing.T) {
	doc := mustDecode(t, `{"voucherkey": "K", "VOUCHERNUMBER": "N"}`)

	got, ok := Lookup(doc, "vouchernumber", "voucherkey")
	if !ok || mustString(t, got) != "N" {
		t.Errorf("first candidate should win in any casing, got %v (found=%v)", got.Interface(), ok)
	}

	got, ok = Lookup(doc, "voucherkey", "vouchernumber")
	if !ok || mustString(t, got) != "K" {
		t.Errorf("caller order should be respected, got %v (found=%v)", got.Interface(), ok)
	}
}

func TestLookup_AbsentVersusNull(t *testing.T) {
	doc := mustDecode(t, `{"narration": null}`)

	got, ok := Lookup(doc, "narration")
	if !ok {
		t.Fatal("present null should be found")
	}
	if !got.IsNull() {
		t.Errorf("kind = %v, want null", got.Kind())
	}

	if _, ok := Lookup(doc, "partyname"); ok {
		t.Error("missing key should be absent")
	}
}

func TestLookup_NonMappingAndEmptyCandidates(t *testing.T) {
	if _, ok := Lookup(mustDecode(t, `["date"]`), "date"); ok {
		t.Error("list receiver should never match")
	}
	if _, ok := Lookup(StringValue("date"), "date"); ok {
		t.Error("string receiver should never match")
	}
	if _, ok := Lookup(mustDecode(t, `{"": 1}`), "", ""); ok {
		t.Error("empty candidates should be skipped")
	}
}
