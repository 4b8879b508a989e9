package scene

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/starford/excalibur/internal/apperr"
)

func TestDecode_TopLevelShape(t *testing.T) {
	input := []byte(`{
		"type": "excalidraw",
		"elements": [{"id": "a", "type": "rectangle", "groupIds": ["g1"], "boundElements": [{"id": "t", "type": "text"}]}],
		"appState": {"viewBackgroundColor": "#ffffff"},
		"files": {"f1": {"mimeType": "image/png", "dataURL": "data:image/png;base64,AAAA"}}
	}`)
	doc, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0]["id"] != "a" {
		t.Fatalf("elements = %v", doc.Elements)
	}
	if doc.AppState["viewBackgroundColor"] != "#ffffff" {
		t.Errorf("appState = %v", doc.AppState)
	}
	if _, ok := doc.Files["f1"]; !ok {
		t.Errorf("files = %v", doc.Files)
	}
}

func TestDecode_NestedDataShape(t *testing.T) {
	input := []byte(`{
		"elements": [{"id": "outer"}],
		"data": {"elements": [{"id": "inner"}], "appState": {"gridSize": 20}}
	}`)
	doc, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0]["id"] != "inner" {
		t.Errorf("elements = %v, want nested", doc.Elements)
	}
	if doc.AppState["gridSize"] != json.Number("20") {
		t.Errorf("appState = %v", doc.AppState)
	}
}

func TestDecode_NestedWithoutElementsFallsBack(t *testing.T) {
	input := []byte(`{"elements": [{"id": "outer"}], "data": {"appState": {}}}`)
	doc, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0]["id"] != "outer" {
		t.Errorf("elements = %v, want top-level", doc.Elements)
	}
}

func TestSelectPayload(t *testing.T) {
	nested := map[string]any{"elements": []any{}}
	cases := []struct {
		name string
		root map[string]any
		want string
	}{
		{"no data", map[string]any{"elements": []any{}}, "root"},
		{"data not object", map[string]any{"data": "x"}, "root"},
		{"data elements not array", map[string]any{"data": map[string]any{"elements": "x"}}, "root"},
		{"data with empty elements", map[string]any{"data": nested}, "nested"},
	}
	for _, tc := range cases {
		got := selectPayload(tc.root)
		isNested := reflect.ValueOf(got).Pointer() == reflect.ValueOf(nested).Pointer()
		if (tc.want == "nested") != isNested {
			t.Errorf("%s: picked wrong payload", tc.name)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{``, `{`, `not json`, `[1,2]`, `42`, `{"elements": []} {}`} {
		_, err := Decode([]byte(input))
		if !errors.Is(err, apperr.ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", input, err)
		}
	}
}

func TestDecode_MissingSectionsDefaultEmpty(t *testing.T) {
	doc, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Elements == nil || len(doc.Elements) != 0 {
		t.Errorf("elements = %#v", doc.Elements)
	}
	if doc.AppState == nil || doc.Files == nil {
		t.Error("appState and files should be empty maps")
	}
}

func TestDecode_StripsBOM(t *testing.T) {
	doc, err := Decode([]byte("\xef\xbb\xbf{\"elements\":[{\"id\":\"x\"}]}"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Elements) != 1 {
		t.Errorf("elements = %v", doc.Elements)
	}
}

func TestDecode_DropsNonObjectElements(t *testing.T) {
	doc, err := Decode([]byte(`{"elements": [{"id": "a"}, 3, "x", null, {"id": "b"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Elements) != 2 || doc.Elements[1]["id"] != "b" {
		t.Errorf("elements = %v", doc.Elements)
	}
}

func TestDecode_MissingGroupIdsRepaired(t *testing.T) {
	doc, err := Decode([]byte(`{"elements": [{"id": "a", "type": "ellipse"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	el := doc.Elements[0]
	groups, ok := el["groupIds"].([]any)
	if !ok || len(groups) != 0 {
		t.Errorf("groupIds = %#v, want []", el["groupIds"])
	}
	if _, present := el["boundElements"]; present {
		t.Errorf("boundElements should stay absent, got %#v", el["boundElements"])
	}
}

func TestRepair_BoundElementsAsymmetry(t *testing.T) {
	cases := []struct {
		name      string
		el        Element
		wantKey   bool
		wantValue any
	}{
		{"absent", Element{}, false, nil},
		{"null", Element{"boundElements": nil}, true, nil},
		{"array", Element{"boundElements": []any{"x"}}, true, []any{"x"}},
		{"string", Element{"boundElements": "bad"}, true, nil},
		{"object", Element{"boundElements": map[string]any{}}, true, nil},
	}
	for _, tc := range cases {
		el := Repair(tc.el)
		v, present := el["boundElements"]
		if present != tc.wantKey {
			t.Errorf("%s: present = %v, want %v", tc.name, present, tc.wantKey)
			continue
		}
		if !reflect.DeepEqual(v, tc.wantValue) {
			t.Errorf("%s: value = %#v, want %#v", tc.name, v, tc.wantValue)
		}
	}
}

func TestRepair_GroupIds(t *testing.T) {
	el := Repair(Element{"groupIds": "g1"})
	if groups, ok := el["groupIds"].([]any); !ok || len(groups) != 0 {
		t.Errorf("non-array groupIds = %#v, want []", el["groupIds"])
	}
	el = Repair(Element{"groupIds": []any{"g1", "g2"}})
	if groups := el["groupIds"].([]any); len(groups) != 2 {
		t.Errorf("array groupIds altered: %#v", groups)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []Element{
		{},
		{"groupIds": nil, "boundElements": "x"},
		{"groupIds": []any{"a"}, "boundElements": []any{}},
		{"boundElements": nil},
	}
	for i, in := range inputs {
		once := Repair(cloneElement(in))
		twice := Repair(Repair(cloneElement(in)))
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: once = %#v, twice = %#v", i, once, twice)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	original := []byte(`{
		"elements": [
			{"id": "a", "type": "rectangle", "x": 10.5, "y": -3, "seed": 1968410350, "groupIds": [], "boundElements": null},
			{"id": "b", "type": "arrow", "points": [[0, 0], [100, 50]], "groupIds": ["g"]}
		],
		"appState": {"viewBackgroundColor": "#fff", "zoom": {"value": 1.25}},
		"files": {}
	}`)
	doc, err := Decode(original)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode after Encode: %v", err)
	}
	if !reflect.DeepEqual(doc.Elements, again.Elements) {
		t.Errorf("elements differ:\n%v\n%v", doc.Elements, again.Elements)
	}
	if !reflect.DeepEqual(doc.AppState, again.AppState) {
		t.Errorf("appState differ:\n%v\n%v", doc.AppState, again.AppState)
	}
	if again.Elements[0]["seed"] != json.Number("1968410350") {
		t.Errorf("seed = %#v, numbers must survive exactly", again.Elements[0]["seed"])
	}
}

func TestEncode_ExportEnvelope(t *testing.T) {
	data, err := Encode(Document{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["type"] != ExportType || out["version"] != float64(ExportVersion) || out["source"] != ExportSource {
		t.Errorf("envelope = %v", out)
	}
	if _, ok := out["elements"].([]any); !ok {
		t.Errorf("elements = %#v, want empty array", out["elements"])
	}
}

func TestStripExt(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"plan.excalidraw":   "plan",
		"archive.tar.json":  "archive.tar",
		"/home/me/flow.mmd": "flow",
		"no-extension":      "no-extension",
	}
	for in, want := range cases {
		if got := StripExt(in); got != want {
			t.Errorf("StripExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func cloneElement(el Element) Element {
	out := make(Element, len(el))
	for k, v := range el {
		out[k] = v
	}
	return out
}

func TestEncode_KeepsOnlyReferencedFiles(t *testing.T) {
	doc := Document{
		Elements: []Element{
			{"id": "img", "type": "image", "fileId": "live"},
			{"id": "gone", "type": "image", "fileId": "deleted", "isDeleted": true},
			{"id": "rect", "type": "rectangle"},
		},
		Files: Files{
			"live":    map[string]any{"id": "live", "mimeType": "image/png"},
			"deleted": map[string]any{"id": "deleted", "mimeType": "image/png"},
			"stale":   map[string]any{"id": "stale", "mimeType": "image/png"},
		},
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(again.Files) != 1 {
		t.Fatalf("files = %v, want only live", again.Files)
	}
	if _, ok := again.Files["live"]; !ok {
		t.Errorf("files = %v", again.Files)
	}
	if len(again.Elements) != 3 {
		t.Errorf("elements must all be kept, got %d", len(again.Elements))
	}
}
