package simulator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

// filter is a compiled LDAP search filter.
type filter struct {
	packet *ber.Packet
}

// compileFilter compiles an LDAP search filter e.g. (&(name=foo)(active=true)).
func compileFilter(text string) (*filter, error) {
	packet, err := ldap.CompileFilter(text)
	if err != nil {
		return nil, errors.NewQueryError("filter %s malformed: %v", text, err)
	}

	if err := checkFilter(packet); err != nil {
		return nil, errors.NewQueryError("filter %s unsupported: %v", text, err)
	}

	return &filter{packet: packet}, nil
}

// checkFilter rejects filter types that cannot be evaluated.
func checkFilter(packet *ber.Packet) error {
	switch packet.Tag {
	case ldap.FilterAnd, ldap.FilterOr, ldap.FilterNot:
		for _, child := range packet.Children {
			if err := checkFilter(child); err != nil {
				return err
			}
		}

		return nil
	case ldap.FilterEqualityMatch, ldap.FilterSubstrings, ldap.FilterGreaterOrEqual, ldap.FilterLessOrEqual, ldap.FilterPresent, ldap.FilterApproxMatch:
		return nil
	}

	return fmt.Errorf("filter type %s", ldap.FilterMap[uint64(packet.Tag)])
}

// packetString returns the string value of a packet.
func packetString(packet *ber.Packet) string {
	if value, ok := packet.Value.(string); ok {
		return value
	}

	return packet.Data.String()
}

// Match returns whether a record matches the filter.
func (f *filter) Match(record api.Record) bool {
	return matchPacket(f.packet, record)
}

func matchPacket(packet *ber.Packet, record api.Record) bool {
	switch packet.Tag {
	case ldap.FilterAnd:
		for _, child := range packet.Children {
			if !matchPacket(child, record) {
				return false
			}
		}

		return true
	case ldap.FilterOr:
		for _, child := range packet.Children {
			if matchPacket(child, record) {
				return true
			}
		}

		return false
	case ldap.FilterNot:
		return len(packet.Children) == 1 && !matchPacket(packet.Children[0], record)
	case ldap.FilterPresent:
		value, ok := record[packetString(packet)]

		return ok && value != nil
	case ldap.FilterSubstrings:
		return matchSubstrings(packet, record)
	}

	if len(packet.Children) != 2 {
		return false
	}

	attribute := packetString(packet.Children[0])
	condition := packetString(packet.Children[1])

	for _, value := range attributeValues(record[attribute]) {
		if compare(packet.Tag, value, condition) {
			return true
		}
	}

	return false
}

// matchSubstrings evaluates (attr=initial*any*final).
func matchSubstrings(packet *ber.Packet, record api.Record) bool {
	if len(packet.Children) != 2 {
		return false
	}

	attribute := packetString(packet.Children[0])

	for _, value := range attributeValues(record[attribute]) {
		if matchSubstring(value, packet.Children[1].Children) {
			return true
		}
	}

	return false
}

func matchSubstring(value string, parts []*ber.Packet) bool {
	for _, part := range parts {
		s := packetString(part)

		switch part.Tag {
		case ldap.FilterSubstringsInitial:
			if !strings.HasPrefix(value, s) {
				return false
			}

			value = value[len(s):]
		case ldap.FilterSubstringsAny:
			index := strings.Index(value, s)
			if index < 0 {
				return false
			}

			value = value[index+len(s):]
		case ldap.FilterSubstringsFinal:
			if !strings.HasSuffix(value, s) {
				return false
			}

			value = ""
		}
	}

	return true
}

// compare evaluates a comparison of a value against a condition.  Ordering
// is numeric when both sides are numbers.
func compare(tag ber.Tag, value, condition string) bool {
	switch tag {
	case ldap.FilterEqualityMatch:
		return value == condition
	case ldap.FilterApproxMatch:
		return strings.EqualFold(value, condition)
	}

	order := strings.Compare(value, condition)

	if v, err := strconv.ParseFloat(value, 64); err == nil {
		if c, err := strconv.ParseFloat(condition, 64); err == nil {
			switch {
			case v < c:
				order = -1
			case v > c:
				order = 1
			default:
				order = 0
			}
		}
	}

	switch tag {
	case ldap.FilterGreaterOrEqual:
		return order >= 0
	case ldap.FilterLessOrEqual:
		return order <= 0
	}

	return false
}

// attributeValues renders a field as the strings a filter matches against.
// Arrays match if any element does.
func attributeValues(value interface{}) []string {
	switch t := value.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case bool:
		return []string{strconv.FormatBool(t)}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(t)}
	case int64:
		return []string{strconv.FormatInt(t, 10)}
	case []interface{}:
		var values []string

		for _, element := range t {
			values = append(values, attributeValues(element)...)
		}

		return values
	case []string:
		return t
	}

	return []string{fmt.Sprintf("%v", value)}
}
