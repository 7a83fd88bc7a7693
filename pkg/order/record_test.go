package order

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRecord_UnmarshalJSON_PreservesKeyOrder(t *testing.T) {
	var rec Record
	data := []byte(`{"OrderId":"A-1","Status":"OPEN","Amount":10.5,"Lines":3,"Paid":true,"Note":null}`)
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"OrderId", "Status", "Amount", "Lines", "Paid", "Note"}
	if got := rec.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestRecord_UnmarshalJSON_Kinds(t *testing.T) {
	var rec Record
	data := []byte(`{"i":42,"f":10.0,"e":1e3,"s":"x","b":false,"n":null,"o":{"a":1},"arr":[1,2]}`)
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	tests := []struct {
		field string
		kind  Kind
		str   string
	}{
		{"i", KindInteger, "42"},
		{"f", KindFloat, "10"},
		{"e", KindFloat, "1000"},
		{"s", KindText, "x"},
		{"b", KindBool, "false"},
		{"n", KindNull, ""},
		{"o", KindText, `{"a":1}`},
		{"arr", KindText, `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, ok := rec.Get(tt.field)
			if !ok {
				t.Fatalf("field %q missing", tt.field)
			}
			if v.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", v.Kind(), tt.kind)
			}
			if v.String() != tt.str {
				t.Errorf("String() = %q, want %q", v.String(), tt.str)
			}
		})
	}
}

func TestRecord_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`[1,2,3]`), &rec); err == nil {
		t.Error("expected error for JSON array")
	}
}

func TestRecord_Get_Absent(t *testing.T) {
	rec := NewRecord(F("amt", Int(10)))

	if _, ok := rec.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
	if rec.Has("missing") {
		t.Error("Has(missing) = true")
	}
	if !rec.Has("amt") {
		t.Error("Has(amt) = false")
	}
}

func TestRecord_SetOverwriteKeepsOrder(t *testing.T) {
	var rec Record
	rec.Set("a", Int(1))
	rec.Set("b", Int(2))
	rec.Set("a", Int(3))

	if got := rec.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", got)
	}
	v, _ := rec.Get("a")
	if n, _ := v.Int64(); n != 3 {
		t.Errorf("a = %d, want 3", n)
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	rec := NewRecord(F("z", Text("last")), F("a", Float(1.5)), F("n", Null()))

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"z":"last","a":1.5,"n":null}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestResultSet_Columns(t *testing.T) {
	rs := ResultSet{
		NewRecord(F("id", Int(1)), F("amt", Int(5))),
		NewRecord(F("id", Int(2)), F("region", Text("north"))),
	}

	want := []string{"id", "amt", "region"}
	if got := rs.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if !rs.HasColumn("region") {
		t.Error("HasColumn(region) = false")
	}
	if rs.HasColumn("missing") {
		t.Error("HasColumn(missing) = true")
	}
}

func TestResultSet_ValuesSkipsNullAndAbsent(t *testing.T) {
	rs := ResultSet{
		NewRecord(F("amt", Int(5))),
		NewRecord(F("amt", Null())),
		NewRecord(F("other", Int(1))),
		NewRecord(F("amt", Int(7))),
	}

	vals := rs.Values("amt")
	if len(vals) != 2 {
		t.Fatalf("len(Values) = %d, want 2", len(vals))
	}
	if vals[0] != Int(5) || vals[1] != Int(7) {
		t.Errorf("Values = %v", vals)
	}
}
