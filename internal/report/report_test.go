package report

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

func TestFormatRecordSet_Empty(t *testing.T) {
	out := FormatRecordSet(nil, "www.example.com", "www")

	if out.Type != nil || out.TTL != nil {
		t.Errorf("empty set should have nil type and ttl, got %v %v", out.Type, out.TTL)
	}
	if out.Value == nil || len(out.Value) != 0 {
		t.Errorf("Value = %#v, want empty non-nil slice", out.Value)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"record":"www.example.com","prefix":"www","type":null,"ttl":null,"value":[]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestFormatRecordSet_Homogeneous(t *testing.T) {
	records := []provider.Record{
		{Type: provider.RecordTypeA, Target: "2.2.2.2", TTL: provider.IntPtr(300)},
		{Type: provider.RecordTypeA, Target: "1.1.1.1", TTL: provider.IntPtr(300)},
	}
	out := FormatRecordSet(records, "www.example.com", "www")

	if *out.Type != "A" || *out.TTL != 300 {
		t.Errorf("type=%s ttl=%d", *out.Type, *out.TTL)
	}
	if out.TTLs != nil {
		t.Errorf("TTLs should be omitted for homogeneous sets, got %v", out.TTLs)
	}
	if !reflect.DeepEqual(out.Value, []string{"2.2.2.2", "1.1.1.1"}) {
		t.Errorf("values must keep stored order, got %v", out.Value)
	}
}

func TestFormatRecordSet_MixedTTLs(t *testing.T) {
	records := []provider.Record{
		{Type: provider.RecordTypeTXT, Target: "a", TTL: provider.IntPtr(3600)},
		{Type: provider.RecordTypeTXT, Target: "b", TTL: provider.IntPtr(60)},
		{Type: provider.RecordTypeTXT, Target: "c"},
		{Type: provider.RecordTypeTXT, Target: "d", TTL: provider.IntPtr(3600)},
	}
	out := FormatRecordSet(records, "example.com", "")

	if out.TTL == nil || *out.TTL != 60 {
		t.Errorf("TTL = %v, want minimum 60", out.TTL)
	}
	if !reflect.DeepEqual(out.TTLs, []int{60, 3600}) {
		t.Errorf("TTLs = %v", out.TTLs)
	}
}

func TestFormatRecordSet_HeterogeneousTypes(t *testing.T) {
	records := []provider.Record{
		{Type: provider.RecordTypeTXT, Target: "x"},
		{Type: provider.RecordTypeAAAA, Target: "::1"},
		{Type: provider.RecordTypeCNAME, Target: "a."},
	}
	out := FormatRecordSet(records, "x.example.com", "x")
	if *out.Type != "AAAA" {
		t.Errorf("Type = %s, want AAAA", *out.Type)
	}
	if out.TTL != nil {
		t.Errorf("TTL = %d, want nil", *out.TTL)
	}
}

func TestFormatRecordSets_Sorted(t *testing.T) {
	sets := []provider.RecordSet{
		{Prefix: "www", Type: provider.RecordTypeA, Records: []provider.Record{{Type: provider.RecordTypeA, Target: "1.1.1.1"}}},
		{Prefix: "", Type: provider.RecordTypeTXT, Records: []provider.Record{{Type: provider.RecordTypeTXT, Target: "x"}}},
		{Prefix: "", Type: provider.RecordTypeMX, Records: []provider.Record{{Type: provider.RecordTypeMX, Target: "10 mx."}}},
	}
	out := FormatRecordSets("example.com", sets)

	var got []string
	for _, o := range out {
		got = append(got, o.Record+"/"+*o.Type)
	}
	want := []string{"example.com/MX", "example.com/TXT", "www.example.com/A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestWrite(t *testing.T) {
	v := Diff{After: []RecordSetOutput{FormatRecordSet(nil, "example.com", "")}}

	var buf bytes.Buffer
	if err := Write(&buf, FormatYAML, v); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "record: example.com") {
		t.Errorf("yaml output missing record:\n%s", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, FormatJSON, v); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"record": "example.com"`) {
		t.Errorf("json output missing record:\n%s", buf.String())
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if f, _ := ParseFormat("YML"); f != FormatYAML {
		t.Errorf("ParseFormat(YML) = %q", f)
	}
}
