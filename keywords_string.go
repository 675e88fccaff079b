package jsonskema

import "unicode/utf8"

func (b *builder) compileString() error {
	if n, ok, err := b.count("maxLength"); err != nil {
		return err
	} else if ok {
		s := b.site("maxLength")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			str, isStr := inst.(string)
			if !isStr || utf8.RuneCountInString(str) <= n {
				return outcome{}
			}
			return s.fail(path, CodeTooLong, map[string]any{"limit": n})
		})
	}
	if n, ok, err := b.count("minLength"); err != nil {
		return err
	} else if ok {
		s := b.site("minLength")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			str, isStr := inst.(string)
			if !isStr || utf8.RuneCountInString(str) >= n {
				return outcome{}
			}
			return s.fail(path, CodeTooShort, map[string]any{"limit": n})
		})
	}
	if raw, ok := b.m["pattern"]; ok {
		re, err := b.cc.pattern(raw)
		if err != nil {
			return b.invalid("pattern", "%v", err)
		}
		s := b.site("pattern")
		b.add(s, func(_ *evaluator, inst any, path *pathRef, _ *outcome) outcome {
			str, isStr := inst.(string)
			if !isStr || re.MatchString(str) {
				return outcome{}
			}
			return s.fail(path, CodePattern, map[string]any{"pattern": raw})
		})
	}
	return nil
}
