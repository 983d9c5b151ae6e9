package join

import (
	"context"
	"reflect"
	"testing"

	"datascout/pkg/records"
)

func sides() (Side, Side) {
	left := Side{
		Rows: []records.Record{
			{"id": int64(1), "name": "a", "v": 10},
			{"id": int64(2), "name": "b", "v": 20},
			{"id": nil, "name": "n", "v": 0},
		},
		Columns: []string{"id", "name", "v"},
		On:      []string{"id"},
	}
	right := Side{
		Rows: []records.Record{
			{"id": 1.0, "v": 100, "extra": "x"},
			{"id": int64(1), "v": 101, "extra": "y"},
			{"id": int64(4), "v": 400, "extra": "z"},
			{"id": nil, "v": 0, "extra": "nil"},
		},
		Columns: []string{"id", "v", "extra"},
		On:      []string{"id"},
	}
	return left, right
}

/*
TestMerge covers the keyed methods. Keys of equal numeric value match across
int and float, nil keys never match, the shared key column is merged and the
clashing right column is prefixed.
*/
func TestMerge(t *testing.T) {
	t.Parallel()

	m1x := records.Record{"id": int64(1), "name": "a", "v": 10, "right_v": 100, "extra": "x"}
	m1y := records.Record{"id": int64(1), "name": "a", "v": 10, "right_v": 101, "extra": "y"}
	l2 := records.Record{"id": int64(2), "name": "b", "v": 20, "right_v": nil, "extra": nil}
	lnil := records.Record{"id": nil, "name": "n", "v": 0, "right_v": nil, "extra": nil}
	r4 := records.Record{"id": int64(4), "name": nil, "v": nil, "right_v": 400, "extra": "z"}
	rnil := records.Record{"id": nil, "name": nil, "v": nil, "right_v": 0, "extra": "nil"}

	tests := []struct {
		how  How
		want []records.Record
	}{
		{Inner, []records.Record{m1x, m1y}},
		{Left, []records.Record{m1x, m1y, l2, lnil}},
		{Right, []records.Record{m1x, m1y, r4, rnil}},
		{Outer, []records.Record{m1x, m1y, l2, lnil, r4, rnil}},
	}
	for _, tc := range tests {
		left, right := sides()
		got, cols, err := Merge(context.Background(), left, right, tc.how)
		if err != nil {
			t.Fatalf("%s: %v", tc.how, err)
		}
		if want := []string{"id", "name", "v", "right_v", "extra"}; !reflect.DeepEqual(cols, want) {
			t.Fatalf("%s: columns %v", tc.how, cols)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s:\n got %v\nwant %v", tc.how, got, tc.want)
		}
	}
}

func TestMerge_Right_KeyFromRight(t *testing.T) {
	t.Parallel()

	left, right := sides()
	got, _, err := Merge(context.Background(), left, right, Right)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	// The first match keeps the left key value, not the right float.
	if got[0]["id"] != int64(1) {
		t.Fatalf("merged key = %#v", got[0]["id"])
	}
}

func TestMerge_DifferentKeyNames(t *testing.T) {
	t.Parallel()

	left := Side{Rows: []records.Record{{"cid": "c1", "n": 1}}, On: []string{"cid"}}
	right := Side{Rows: []records.Record{{"id": "c1", "n": 2}}, On: []string{"id"}}
	got, cols, err := Merge(context.Background(), left, right, Inner)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if want := []string{"cid", "n", "id", "right_n"}; !reflect.DeepEqual(cols, want) {
		t.Fatalf("columns %v, want %v", cols, want)
	}
	want := []records.Record{{"cid": "c1", "n": 1, "id": "c1", "right_n": 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}

func TestMerge_Cross(t *testing.T) {
	t.Parallel()

	left := Side{Rows: []records.Record{{"a": 1}, {"a": 2}}}
	right := Side{Rows: []records.Record{{"a": "x"}, {"b": "y"}}, Columns: []string{"a", "b"}}
	got, cols, err := Merge(context.Background(), left, right, Cross)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if want := []string{"a", "right_a", "b"}; !reflect.DeepEqual(cols, want) {
		t.Fatalf("columns %v", cols)
	}
	if len(got) != 4 || got[3]["a"] != 2 || got[3]["b"] != "y" || got[3]["right_a"] != nil {
		t.Fatalf("got %v", got)
	}
}

func TestMerge_Errors(t *testing.T) {
	t.Parallel()

	l := Side{On: []string{"a"}}
	if _, _, err := Merge(context.Background(), l, Side{}, Inner); err == nil {
		t.Fatalf("mismatched key lengths should fail")
	}
	if _, _, err := Merge(context.Background(), l, Side{On: []string{"a"}}, Cross); err == nil {
		t.Fatalf("cross join with keys should fail")
	}
	if _, _, err := Merge(context.Background(), Side{}, Side{}, Left); err == nil {
		t.Fatalf("keyed join without keys should fail")
	}
	if _, err := ParseHow("sideways"); err == nil {
		t.Fatalf("unknown method should fail")
	}
	if h, _ := ParseHow(""); h != Inner {
		t.Fatalf("default method = %q", h)
	}
}
