package models

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// PeerUpdate lists the peer fields a client may change. A nil field is left untouched.
type PeerUpdate struct {
	Note *string `mapstructure:"note"`
}

// NoteValue returns the trimmed note and whether it should be written. A note that is
// empty after trimming is treated as absent, so it never clears the stored value.
func (u PeerUpdate) NoteValue() (string, bool) {
	if u.Note == nil {
		return "", false
	}
	v := strings.TrimSpace(*u.Note)
	if v == "" {
		return "", false
	}
	return v, true
}

// IsEmpty reports whether the update would not change anything.
func (u PeerUpdate) IsEmpty() bool {
	_, ok := u.NoteValue()
	return !ok
}

// PeerUpdateFromJSON reads the recognised fields of a JSON object. Unknown keys are
// ignored, and so are recognised keys holding something other than a string.
func PeerUpdateFromJSON(raw []byte) (PeerUpdate, error) {
	if !gjson.ValidBytes(raw) {
		return PeerUpdate{}, fmt.Errorf("payload is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return PeerUpdate{}, fmt.Errorf("payload must be a JSON object")
	}
	payload, _ := doc.Value().(map[string]any)
	return PeerUpdateFromMap(payload)
}

// PeerUpdateFromMap decodes an already parsed payload, such as a decoded JSON body.
// Keys match the mapstructure tags exactly. Non-string note values are ignored rather
// than rejected.
func PeerUpdateFromMap(payload map[string]any) (PeerUpdate, error) {
	var u PeerUpdate
	if payload == nil {
		return u, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: dropNonStringHook,
		MatchName:  func(mapKey, fieldName string) bool { return mapKey == fieldName },
		Result:     &u,
	})
	if err != nil {
		return PeerUpdate{}, fmt.Errorf("creating peer update decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return PeerUpdate{}, fmt.Errorf("decoding peer update: %w", err)
	}
	return u, nil
}

var stringPtrType = reflect.TypeOf((*string)(nil))

// dropNonStringHook turns values destined for a *string field into nil unless they
// are strings, which leaves the field unset.
func dropNonStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == stringPtrType && from.Kind() != reflect.String {
		return nil, nil
	}
	return data, nil
}
