package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional parameters substituted into "{name}" placeholders
// (for example "limit" or "expected").
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":        "expected {expected}, got {got}",
		"invalid_enum":        "must be one of the allowed values",
		"invalid_const":       "must equal the constant value",
		"invalid_format":      "must be a valid {format}",
		"too_small":           "must be {op} {limit}",
		"too_big":             "must be {op} {limit}",
		"not_multiple":        "must be a multiple of {limit}",
		"too_short":           "must be at least {limit} characters",
		"too_long":            "must be at most {limit} characters",
		"pattern":             "must match pattern {pattern}",
		"too_few_items":       "must have at least {limit} items",
		"too_many_items":      "must have at most {limit} items",
		"uniqueness":          "items at {first} and {second} are equal",
		"contains":            "must contain between {min} and {max} matching items, found {count}",
		"required":            "required property {property} missing",
		"too_few_properties":  "must have at least {limit} properties",
		"too_many_properties": "must have at most {limit} properties",
		"unknown_key":         "property {property} is not allowed",
		"property_name":       "property name {property} is invalid",
		"no_match":            "must match at least one schema",
		"union_ambiguous":     "must match exactly one schema, matched {count}",
		"not":                 "must not match the schema",
		"false_schema":        "no value is allowed here",
		"unevaluated":         "{what} {property} is not evaluated by any subschema",
		"max_depth":           "evaluation exceeded depth {limit}",
		"duplicate_key":       "duplicate key {key}",
		"duplicate_item":      "duplicates the item at {first}",
		"parse_error":         "parse error",
		"truncated":           "truncated",
	},
	"ja": {
		"invalid_type":        "型が不正です ({expected} が必要です)",
		"invalid_enum":        "許可された値ではありません",
		"invalid_const":       "定数と一致しません",
		"invalid_format":      "{format} の形式ではありません",
		"too_small":           "{limit} 以上である必要があります",
		"too_big":             "{limit} 以下である必要があります",
		"not_multiple":        "{limit} の倍数である必要があります",
		"too_short":           "短すぎます",
		"too_long":            "長すぎます",
		"pattern":             "パターン {pattern} に一致しません",
		"too_few_items":       "要素が少なすぎます",
		"too_many_items":      "要素が多すぎます",
		"uniqueness":          "要素が重複しています",
		"contains":            "条件に一致する要素の数が不正です",
		"required":            "必須プロパティ {property} が不足しています",
		"too_few_properties":  "プロパティが少なすぎます",
		"too_many_properties": "プロパティが多すぎます",
		"unknown_key":         "未知のキーです",
		"property_name":       "プロパティ名が不正です",
		"no_match":            "いずれのスキーマにも一致しません",
		"union_ambiguous":     "複数のスキーマに一致しました",
		"not":                 "禁止されたスキーマに一致しました",
		"false_schema":        "値は許可されていません",
		"unevaluated":         "評価されていない {what} です",
		"max_depth":           "評価の深さが上限を超えました",
		"duplicate_key":       "キーが重複しています",
		"duplicate_item":      "{first} の要素と重複しています",
		"parse_error":         "解析エラー",
		"truncated":           "打ち切られました",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	tmpl, ok := dictionaries[t.lang][code]
	if !ok {
		if tmpl, ok = dictionaries["en"][code]; !ok {
			return code
		}
	}
	return expand(tmpl, data)
}

// expand substitutes {name} placeholders; unknown names are left as is.
func expand(tmpl string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
