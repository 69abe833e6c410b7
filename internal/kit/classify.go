package kit

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Classify inspects a raw response body and returns its payload variant.
//
// Precedence: an explicit "questions" tag wins, then "final_kit" or any
// non-null "sections" field, then "comparison". Everything else, including
// bodies that are not JSON objects, degrades to Fallback.
func Classify(raw []byte) Payload {
	if !gjson.ValidBytes(raw) {
		return Fallback{}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Fallback{}
	}

	tag := root.Get("type")
	typ := ""
	if tag.Type == gjson.String {
		typ = tag.Str
	}

	sections := root.Get("sections")
	hasSections := sections.Exists() && sections.Type != gjson.Null

	switch {
	case typ == "questions":
		return Questions{Questions: decodeQuestions(root)}
	case typ == "final_kit" || hasSections:
		return decodeFinalKit(root)
	case typ == "comparison":
		return decodeComparison(root)
	}

	resp := text(root.Get("response"))
	return Fallback{Response: resp, HasResponse: resp != ""}
}

// DecodeKit reads a FinalKit-shaped body, as served by GET /history/{id}.
// Missing fields default to their zero values.
func DecodeKit(raw []byte) FinalKit {
	if !gjson.ValidBytes(raw) {
		return FinalKit{}
	}
	return decodeFinalKit(gjson.ParseBytes(raw))
}

// DecodeHistory reads the GET /history listing. Entries keep the order the
// backend sent them in. The id comes from "id", falling back to "_id".
func DecodeHistory(raw []byte) []HistoryEntry {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		return nil
	}

	entries := make([]HistoryEntry, 0, len(list.Array()))
	list.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		id := text(v.Get("id"))
		if id == "" {
			id = objectID(v.Get("_id"))
		}
		name := text(v.Get("kit_name"))
		entries = append(entries, HistoryEntry{ID: id, KitName: name, HasName: name != ""})
		return true
	})
	return entries
}

// JoinQuestions flattens a question list into a single history turn.
func JoinQuestions(questions []string) string {
	return strings.Join(questions, " ")
}

func decodeQuestions(root gjson.Result) []string {
	src := root.Get("data")
	if !src.Exists() || src.Type == gjson.Null {
		src = root.Get("questions")
	}
	if !src.Exists() || src.Type == gjson.Null {
		return []string{}
	}
	if !src.IsArray() {
		return []string{src.String()}
	}

	out := make([]string, 0, len(src.Array()))
	for _, q := range src.Array() {
		out = append(out, q.String())
	}
	return out
}

func decodeFinalKit(root gjson.Result) FinalKit {
	fk := FinalKit{
		Title:    text(root.Get("kit_title")),
		Summary:  text(root.Get("summary")),
		Sections: []Section{},
	}

	sections := root.Get("sections")
	if !sections.IsArray() {
		return fk
	}
	for _, s := range sections.Array() {
		if !s.IsObject() {
			continue
		}
		sec := Section{Name: text(s.Get("name")), Items: []RawItem{}}
		items := s.Get("items")
		if !items.IsArray() {
			fk.Sections = append(fk.Sections, sec)
			continue
		}
		for _, it := range items.Array() {
			if !it.IsObject() {
				continue
			}
			sec.Items = append(sec.Items, decodeItem(it))
		}
		fk.Sections = append(fk.Sections, sec)
	}
	return fk
}

func decodeItem(it gjson.Result) RawItem {
	return RawItem{
		Name:        text(it.Get("name")),
		Description: text(it.Get("description")),
		Price:       text(it.Get("price")),
		ImgURL:      text(it.Get("img_url")),
		ImageURL:    text(it.Get("imageUrl")),
		BuyURL:      text(it.Get("buy_url")),
		Link:        text(it.Get("link")),
	}
}

func decodeComparison(root gjson.Result) Comparison {
	return Comparison{
		Name:        text(root.Get("name")),
		Price:       text(root.Get("price")),
		Description: text(root.Get("description")),
		Pros:        strList(root.Get("pros")),
		Cons:        strList(root.Get("cons")),
		BuyURL:      text(root.Get("buy_url")),
	}
}

// text returns the string form of a scalar, or "" for null/missing values.
func text(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

func strList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if v.Type == gjson.Null {
			continue
		}
		out = append(out, v.String())
	}
	return out
}

// objectID unwraps Mongo extended JSON ({"$oid": "..."}) as well as plain ids.
func objectID(r gjson.Result) string {
	if r.IsObject() {
		return text(r.Get("$oid"))
	}
	return text(r)
}
