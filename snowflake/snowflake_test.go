package snowflake

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"testing"
	"time"
)

type record struct {
	id ID
}

func (r record) Snowflake() ID { return r.id }

func TestParse_RoundTripsDecimalText(t *testing.T) {
	values := []uint64{0, 1, 1234567890, 661200758510977084, math.MaxUint64}
	for _, value := range values {
		text := strconv.FormatUint(value, 10)
		id, err := Parse(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if uint64(id) != value {
			t.Fatalf("expected %d, got %d", value, id)
		}
		if id.String() != text {
			t.Fatalf("expected string %q, got %q", text, id.String())
		}
	}
}

func TestParse_RejectsNonDecimalAndOverflow(t *testing.T) {
	inputs := []string{"", "abc", "-1", "+1", " 1", "1 ", "1.5", "0x10", "18446744073709551616", "99999999999999999999999"}
	for _, input := range inputs {
		_, err := Parse(input)
		if err == nil {
			t.Fatalf("expected %q to fail", input)
		}
		if !IsInvalidIdentifier(err) {
			t.Fatalf("expected invalid identifier code for %q, got %v", input, err)
		}
	}
}

func TestInt_NarrowsWithoutValidation(t *testing.T) {
	if got := Int(int64(42)); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := Int(int8(-1)); got != ID(math.MaxUint64) {
		t.Fatalf("expected negative input to wrap, got %d", got)
	}
	if got := Int(uint32(7)); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestFromBig_KeepsLowBits(t *testing.T) {
	value := new(big.Int).Lsh(big.NewInt(1), 64)
	value.Add(value, big.NewInt(5))
	if got := FromBig(value); got != 5 {
		t.Fatalf("expected low 64 bits 5, got %d", got)
	}
	if got := FromBig(big.NewInt(-1)); got != ID(math.MaxUint64) {
		t.Fatalf("expected -1 to wrap to max uint64, got %d", got)
	}
	if got := FromBig(nil); got != 0 {
		t.Fatalf("expected nil to map to zero, got %d", got)
	}
}

func TestResolve_AcceptsAllIdentifierShapes(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  ID
	}{
		{name: "int", input: 12, want: 12},
		{name: "uint64", input: uint64(math.MaxUint64), want: ID(math.MaxUint64)},
		{name: "string", input: "264811613708746752", want: 264811613708746752},
		{name: "bytes", input: []byte("99"), want: 99},
		{name: "text", input: Text("77"), want: 77},
		{name: "id", input: ID(5), want: 5},
		{name: "record", input: record{id: 31}, want: 31},
		{name: "big", input: big.NewInt(8), want: 8},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.input)
		if err != nil {
			t.Fatalf("%s: resolve: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	if _, err := Resolve("nope"); !IsInvalidIdentifier(err) {
		t.Fatalf("expected invalid identifier for bad text, got %v", err)
	}
	if _, err := Resolve(3.5); !IsInvalidIdentifier(err) {
		t.Fatalf("expected invalid identifier for unsupported type, got %v", err)
	}
	if _, err := Resolve(nil); !IsInvalidIdentifier(err) {
		t.Fatalf("expected invalid identifier for nil, got %v", err)
	}
}

func TestParseList_KeepsValidSubsetInOrder(t *testing.T) {
	got := ParseList([]string{"3", "x", "1", "", "-4", "2", "18446744073709551616"})
	want := List{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestUnmarshalJSON_StrictFieldFailsWholeDecode(t *testing.T) {
	var payload struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(`{"id":"abc","name":"x"}`), &payload); err == nil {
		t.Fatalf("expected malformed id to fail decode")
	}
	if err := json.Unmarshal([]byte(`{"id":"661200758510977084","name":"x"}`), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ID != 661200758510977084 {
		t.Fatalf("expected decoded id, got %d", payload.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":null}`), &payload); err == nil {
		t.Fatalf("expected null id to fail decode")
	}
}

func TestUnmarshalJSON_RejectsNonStringTokens(t *testing.T) {
	inputs := []string{
		`{"id":123}`,
		`{"id":1234567890}`,
		`{"id":true}`,
		`{"id":{"value":"1"}}`,
		`{"id":["1"]}`,
	}
	for _, input := range inputs {
		var payload struct {
			ID ID `json:"id"`
		}
		err := json.Unmarshal([]byte(input), &payload)
		if err == nil {
			t.Fatalf("expected %s to fail decode", input)
		}
		if !IsInvalidIdentifier(err) {
			t.Fatalf("expected invalid identifier for %s, got %v", input, err)
		}
	}
}

func TestUnmarshalJSON_LenientListSkipsInvalidStrings(t *testing.T) {
	var payload struct {
		Owners List `json:"owners"`
	}
	if err := json.Unmarshal([]byte(`{"owners":["10","bad","","30"]}`), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Owners) != 2 || payload.Owners[0] != 10 || payload.Owners[1] != 30 {
		t.Fatalf("expected [10 30], got %v", payload.Owners)
	}
	if !payload.Owners.Contains(ID(30)) {
		t.Fatalf("expected list to contain 30")
	}
}

func TestUnmarshalJSON_ListRejectsNonStringShapes(t *testing.T) {
	inputs := []string{
		`{"owners":["10",20,"30"]}`,
		`{"owners":null}`,
		`{"owners":"10"}`,
		`{"owners":[null]}`,
	}
	for _, input := range inputs {
		var payload struct {
			Owners List `json:"owners"`
		}
		if err := json.Unmarshal([]byte(input), &payload); err == nil {
			t.Fatalf("expected %s to fail decode, got %v", input, payload.Owners)
		}
	}
}

func TestListContainsResolvesShapes(t *testing.T) {
	list := List{10, 30}
	for _, target := range []any{ID(30), "30", int64(30), uint8(30), Text("30")} {
		if !list.Contains(target) {
			t.Fatalf("expected list to contain %#v", target)
		}
	}
	for _, target := range []any{"31", "thirty", " 30", -30, nil, 30.0} {
		if list.Contains(target) {
			t.Fatalf("expected list not to contain %#v", target)
		}
	}
}

func TestMarshalJSON_EmitsStrings(t *testing.T) {
	raw, err := json.Marshal(struct {
		ID  ID   `json:"id"`
		IDs List `json:"ids"`
	}{ID: 18446744073709551615, IDs: List{1, 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"18446744073709551615","ids":["1","2"]}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestScan_AcceptsDriverValues(t *testing.T) {
	var id ID
	if err := id.Scan("123"); err != nil || id != 123 {
		t.Fatalf("expected 123 from string, got %d (%v)", id, err)
	}
	if err := id.Scan([]byte("456")); err != nil || id != 456 {
		t.Fatalf("expected 456 from bytes, got %d (%v)", id, err)
	}
	if err := id.Scan(int64(9)); err != nil || id != 9 {
		t.Fatalf("expected 9 from int64, got %d (%v)", id, err)
	}
	if err := id.Scan(1.5); err == nil {
		t.Fatalf("expected unsupported scan type to fail")
	}
	value, err := ID(77).Value()
	if err != nil || value != "77" {
		t.Fatalf("expected driver value \"77\", got %v (%v)", value, err)
	}
}

func TestTimestamp_DecodesEpochOffset(t *testing.T) {
	id := ID(uint64(1000) << 22)
	want := time.UnixMilli(Epoch + 1000).UTC()
	if !id.Timestamp().Equal(want) {
		t.Fatalf("expected %s, got %s", want, id.Timestamp())
	}
}
