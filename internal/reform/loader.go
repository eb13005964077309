package reform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

// indexingSuffix marks a provision that toggles a parameter's indexing
// status instead of overriding its value.
const indexingSuffix = "_cpi"

// #region schema

// reformSchema is the structural contract for a reform body after
// comment stripping: parameter name → 4-digit year → scalar or number
// array. Semantic checks (registry membership, year window, arity,
// bounds) happen in the validator.
const reformSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"propertyNames": {"pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
	"additionalProperties": {
		"type": "object",
		"minProperties": 1,
		"propertyNames": {"pattern": "^[0-9]{4}$"},
		"additionalProperties": {
			"anyOf": [
				{"type": "number"},
				{"type": "boolean"},
				{"type": "string"},
				{"type": "array", "items": {"type": "number"}, "minItems": 1}
			]
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("reform.json", reformSchema)

// #endregion schema

// #region load

// LoadDocument reads and parses a reform file.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reform: %w", err)
	}
	return ParseDocument(raw)
}

// ParseDocument parses raw reform text: strips // comments, extracts the
// advisory metadata header, and validates the body shape against the
// reform schema. The result still needs semantic validation against a
// registry before it can be applied.
func ParseDocument(raw []byte) (*Document, error) {
	body, header := stripComments(raw)

	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, &SchemaError{Detail: "malformed JSON", Err: err}
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, &SchemaError{Detail: "document shape rejected", Err: err}
	}

	var rawDoc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(body, &rawDoc); err != nil {
		return nil, &SchemaError{Detail: "document body is not an object of year maps", Err: err}
	}

	sum := sha256.Sum256(body)
	doc := &Document{
		Metadata:   parseMetadata(header),
		Provisions: make(map[string]map[int]policy.Value),
		Indexing:   make(map[string]map[int]bool),
		SourceHash: hex.EncodeToString(sum[:]),
	}

	for name, yearMap := range rawDoc {
		for ys, rawVal := range yearMap {
			year, err := strconv.Atoi(ys)
			if err != nil {
				return nil, &SchemaError{Detail: fmt.Sprintf("parameter %s: year key %q is not a 4-digit year", name, ys)}
			}
			val, err := policy.DecodeValue(rawVal)
			if err != nil {
				return nil, &SchemaError{Detail: fmt.Sprintf("parameter %s year %d", name, year), Err: err}
			}

			if strings.HasSuffix(name, indexingSuffix) {
				if val.Kind != policy.KindBool {
					return nil, &SchemaError{Detail: fmt.Sprintf("indexing toggle %s year %d must be boolean, got %s", name, year, val.Kind)}
				}
				root := strings.TrimSuffix(name, indexingSuffix)
				if doc.Indexing[root] == nil {
					doc.Indexing[root] = make(map[int]bool)
				}
				doc.Indexing[root][year] = val.Flag
				continue
			}

			if doc.Provisions[name] == nil {
				doc.Provisions[name] = make(map[int]policy.Value)
			}
			doc.Provisions[name][year] = val
		}
	}

	return doc, nil
}

// #endregion load

// #region comment-stripping

// stripComments removes // line comments (outside string literals) and
// returns the JSON body plus the leading comment block for metadata.
func stripComments(raw []byte) ([]byte, []string) {
	lines := strings.Split(string(raw), "\n")
	var body strings.Builder
	var header []string
	inHeader := true

	for _, line := range lines {
		code, comment := splitComment(line)
		trimmed := strings.TrimSpace(code)

		if inHeader {
			if trimmed == "" {
				if comment != "" {
					header = append(header, comment)
				}
				body.WriteString("\n")
				continue
			}
			inHeader = false
		}
		body.WriteString(code)
		body.WriteString("\n")
	}
	return []byte(body.String()), header
}

// splitComment cuts a line at the first // outside a string literal.
func splitComment(line string) (code, comment string) {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case c == '/' && !inString && i+1 < len(line) && line[i+1] == '/':
			return line[:i], strings.TrimSpace(line[i+2:])
		}
	}
	return line, ""
}

// #endregion comment-stripping

// #region metadata

// parseMetadata reads "Key: value" pairs from the leading comment
// block. Recognised keys fill the named fields; any other "name: text"
// line is treated as a parameter-to-provision mapping.
func parseMetadata(header []string) Metadata {
	md := Metadata{ProvisionMap: make(map[string]string)}
	lastKey := ""

	for _, line := range header {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			// Continuation of the previous free-text field.
			if lastKey == "description" && md.Description != "" {
				md.Description += " " + strings.TrimSpace(line)
			}
			continue
		}
		key = strings.TrimSpace(key)
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(key) {
		case "title":
			md.Title = rest
			lastKey = "title"
		case "author":
			md.Author = rest
			lastKey = "author"
		case "source":
			md.Source = rest
			lastKey = "source"
		case "baseline":
			md.Baseline = rest
			lastKey = "baseline"
		case "description":
			md.Description = rest
			lastKey = "description"
		default:
			if rest != "" && !strings.Contains(key, " ") {
				md.ProvisionMap[key] = rest
			}
			lastKey = ""
		}
	}
	if len(md.ProvisionMap) == 0 {
		md.ProvisionMap = nil
	}
	return md
}

// #endregion metadata
