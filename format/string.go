package format

import (
	"encoding/base64"
	"math/big"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"
	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reoring/jsonskema/pattern"
)

var stringChecks = map[string]func(string) bool{
	"uri":                   isURI,
	"uri-reference":         isURIReference,
	"iri":                   isIRI,
	"iri-reference":         isIRIReference,
	"uri-template":          isURITemplate,
	"url":                   isURL,
	"email":                 isEmail,
	"idn-email":             isIDNEmail,
	"hostname":              isHostname,
	"idn-hostname":          isIDNHostname,
	"ipv4":                  isIPv4,
	"ipv6":                  isIPv6,
	"ip":                    func(s string) bool { return isIPv4(s) || isIPv6(s) },
	"cidr":                  isCIDR,
	"uuid":                  isUUID,
	"guid":                  isGUID,
	"json-pointer":          isJSONPointer,
	"relative-json-pointer": isRelativeJSONPointer,
	"identifier":            identifierRe.MatchString,
	"alpha":                 regexp.MustCompile(`^[A-Za-z]+$`).MatchString,
	"alphanumeric":          regexp.MustCompile(`^[A-Za-z0-9]+$`).MatchString,
	"numeric":               regexp.MustCompile(`^[0-9]+$`).MatchString,
	"hexadecimal":           regexp.MustCompile(`^[0-9A-Fa-f]+$`).MatchString,
	"base64":                isBase64,
	"base64url":             isBase64URL,
	"isbn10":                isISBN10,
	"isbn13":                isISBN13,
	"isbn":                  func(s string) bool { return isISBN10(s) || isISBN13(s) },
	"iban":                  isIBAN,
	"mac":                   macRe.MatchString,
	"credit-card":           isCreditCard,
	"hex-color":             regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3,4}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`).MatchString,
	"lowercase":             func(s string) bool { return cases.Lower(language.Und).String(s) == s },
	"uppercase":             func(s string) bool { return cases.Upper(language.Und).String(s) == s },
	"semver":                isSemver,
	"ascii":                 isASCII,
	"printable":             isPrintable,
}

func init() {
	r := builtin[String]
	for name, check := range stringChecks {
		r.Register(name, stringCompiler(name, check))
	}
	r.Register("regex", func(ctx Context, _ map[string]any) (Predicate, error) {
		return func(v any) *Failure {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			if _, err := compilePattern(ctx, s); err != nil {
				return &Failure{Keyword: "format", Value: "regex", Message: err.Error()}
			}
			return nil
		}, nil
	})
	r.Register("pattern", func(ctx Context, _ map[string]any) (Predicate, error) {
		return func(v any) *Failure {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			p, err := pattern.Parse(s)
			if err == nil {
				_, err = compilePattern(ctx, p)
			}
			if err != nil {
				return &Failure{Keyword: "format", Value: "pattern", Message: err.Error()}
			}
			return nil
		}, nil
	})
}

func stringCompiler(name string, check func(string) bool) CompileFunc {
	return func(_ Context, _ map[string]any) (Predicate, error) {
		return func(v any) *Failure {
			s, ok := v.(string)
			if !ok || check(s) {
				return nil
			}
			return mismatch(name)
		}, nil
	}
}

var (
	identifierRe = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*$`)
	macRe        = regexp.MustCompile(`^[0-9A-Fa-f]{2}(?:(?::[0-9A-Fa-f]{2}){5}|(?:-[0-9A-Fa-f]{2}){5})$`)
)

// characters never allowed unescaped in a URI or IRI
const uriForbidden = " \"<>\\^`{|}"

func uriChars(s string, ascii bool) bool {
	if strings.ContainsAny(s, uriForbidden) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f {
			return false
		}
		if ascii && c >= 0x80 {
			return false
		}
		if c == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func parseURI(s string, ascii bool) (*url.URL, bool) {
	if !uriChars(s, ascii) {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	return u, true
}

func isURI(s string) bool {
	u, ok := parseURI(s, true)
	return ok && u.IsAbs()
}

func isURIReference(s string) bool {
	_, ok := parseURI(s, true)
	return ok
}

func isIRI(s string) bool {
	u, ok := parseURI(s, false)
	return ok && u.IsAbs()
}

func isIRIReference(s string) bool {
	_, ok := parseURI(s, false)
	return ok
}

func isURL(s string) bool {
	u, ok := parseURI(s, true)
	return ok && u.IsAbs() && u.Host != ""
}

var uriTemplateRe = regexp.MustCompile(`^(?:[^{}]|\{[+#./;?&=,!@|]?[A-Za-z0-9_%.]+(?::[1-9]\d{0,3}|\*)?(?:,[A-Za-z0-9_%.]+(?::[1-9]\d{0,3}|\*)?)*\})*$`)

func isURITemplate(s string) bool { return uriTemplateRe.MatchString(s) }

var emailLocalRe = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+)*$")

func splitEmail(s string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}
	return s[:at], s[at+1:], true
}

func emailDomain(d string) bool {
	if strings.HasPrefix(d, "[") && strings.HasSuffix(d, "]") {
		lit := d[1 : len(d)-1]
		if v6, ok := strings.CutPrefix(lit, "IPv6:"); ok {
			return isIPv6(v6)
		}
		return isIPv4(lit)
	}
	return isHostname(d)
}

func isEmail(s string) bool {
	local, domain, ok := splitEmail(s)
	if !ok || len(local) > 64 {
		return false
	}
	if strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`) && len(local) >= 2 {
		return emailDomain(domain)
	}
	return emailLocalRe.MatchString(local) && emailDomain(domain)
}

func isIDNEmail(s string) bool {
	local, domain, ok := splitEmail(s)
	if !ok || strings.ContainsAny(local, " @") {
		return false
	}
	if strings.HasPrefix(domain, "[") {
		return emailDomain(domain)
	}
	return isIDNHostname(domain)
}

var labelRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

func isHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !labelRe.MatchString(label) {
			return false
		}
		// "--" in positions 3-4 is reserved for A-labels
		if len(label) >= 4 && label[2:4] == "--" {
			if !strings.HasPrefix(strings.ToLower(label), "xn--") {
				return false
			}
			if _, err := idna.Lookup.ToUnicode(label); err != nil {
				return false
			}
		}
	}
	return true
}

var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.ValidateLabels(true),
	idna.StrictDomainName(true),
	idna.Transitional(false),
)

func isIDNHostname(s string) bool {
	if s == "" || strings.ContainsAny(s, uriForbidden) {
		return false
	}
	ascii, err := idnaProfile.ToASCII(s)
	if err != nil {
		return false
	}
	return isHostname(ascii)
}

func isIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func isIPv6(s string) bool {
	if strings.ContainsRune(s, '%') {
		return false
	}
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6()
}

func isCIDR(s string) bool {
	_, err := netip.ParsePrefix(s)
	return err == nil
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// isGUID also accepts the braced and the compact 32-digit forms.
func isGUID(s string) bool {
	if strings.HasPrefix(strings.ToLower(s), "urn:") {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isJSONPointer(s string) bool {
	if s == "" {
		return true
	}
	if s[0] != '/' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && (i+1 >= len(s) || (s[i+1] != '0' && s[i+1] != '1')) {
			return false
		}
	}
	return true
}

var relPointerRe = regexp.MustCompile(`^(0|[1-9][0-9]*)(#|/.*)?$`)

func isRelativeJSONPointer(s string) bool {
	m := relPointerRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return m[2] == "#" || isJSONPointer(m[2])
}

func isBase64(s string) bool {
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

func isBase64URL(s string) bool {
	enc := base64.RawURLEncoding
	if strings.HasSuffix(s, "=") {
		enc = base64.URLEncoding
	}
	_, err := enc.DecodeString(s)
	return err == nil
}

func stripISBN(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

func isISBN10(s string) bool {
	s = stripISBN(s)
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case i == 9 && (c == 'X' || c == 'x'):
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func isISBN13(s string) bool {
	s = stripISBN(s)
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

var ibanRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

func isIBAN(s string) bool {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !ibanRe.MatchString(s) {
		return false
	}
	rearranged := s[4:] + s[:4]
	var digits strings.Builder
	for _, c := range rearranged {
		if c >= 'A' && c <= 'Z' {
			digits.WriteString(strconv.Itoa(int(c-'A') + 10))
		} else {
			digits.WriteRune(c)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	return ok && new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// isCreditCard checks length and the Luhn checksum.
func isCreditCard(s string) bool {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(s) < 12 || len(s) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// isSemver accepts MAJOR.MINOR.PATCH with optional pre-release and build
// metadata; the "v" prefix and shorthand forms are rejected.
func isSemver(s string) bool {
	if s == "" || s[0] == 'v' {
		return false
	}
	core := s
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	if strings.Count(core, ".") != 2 {
		return false
	}
	return semver.IsValid("v" + s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
