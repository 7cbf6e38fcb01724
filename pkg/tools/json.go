package tools

import "encoding/json"

// DecodeJSONObject unmarshals raw as a top-level JSON object, returning an
// error if it decodes to anything else (array, scalar, ...).
func DecodeJSONObject(raw []byte) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// MergeValues performs a left-biased recursive merge of source into target:
// for every key present in source but absent from target, the value is
// inserted; for every key present in both where both values are objects,
// the merge recurses; otherwise target's value wins. target is mutated and
// returned for convenience.
func MergeValues(target, source map[string]interface{}) map[string]interface{} {
	if target == nil {
		target = map[string]interface{}{}
	}

	for key, srcVal := range source {
		tgtVal, exists := target[key]
		if !exists {
			target[key] = srcVal
			continue
		}

		tgtObj, tgtIsObj := tgtVal.(map[string]interface{})
		srcObj, srcIsObj := srcVal.(map[string]interface{})
		if tgtIsObj && srcIsObj {
			target[key] = MergeValues(tgtObj, srcObj)
		}
		// else: target wins, leave as-is.
	}

	return target
}
