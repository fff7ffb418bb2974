package warehouse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

const (
	MinRack  = 1
	MaxRack  = 999
	MinShelf = 0
	MaxShelf = 99
)

var (
	labelPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
	rackPattern  = regexp.MustCompile(`^[0-9]{3}$`)
	shelfPattern = regexp.MustCompile(`^[0-9]{2}$`)
	upper        = cases.Upper(language.Und)
)

// Location is the decomposed form of a bin location code.
type Location struct {
	Floor string `json:"floor"`
	Area  string `json:"area"`
	Rack  int    `json:"rack"`
	Shelf int    `json:"shelf"`
	Bin   string `json:"bin"`
}

// Code renders the location code of l.
func (l Location) Code() string {
	return Encode(l.Floor, l.Area, l.Rack, l.Shelf, l.Bin)
}

// Encode builds FLOOR-AREA-RRR-SS-BIN. Inputs are expected to be normalised
// already; see NormalizeLabel, ValidRack and ValidShelf.
func Encode(floor, areaCode string, rackNumber, shelfLevel int, binCode string) string {
	return fmt.Sprintf("%s-%s-%03d-%02d-%s", floor, areaCode, rackNumber, shelfLevel, binCode)
}

// Decompose parses a location code produced by Encode.
func Decompose(code string) (Location, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 5 {
		return Location{}, invalidCode(code)
	}
	for _, label := range []string{parts[0], parts[1], parts[4]} {
		if !labelPattern.MatchString(label) {
			return Location{}, invalidCode(code)
		}
	}
	if !rackPattern.MatchString(parts[2]) || !shelfPattern.MatchString(parts[3]) {
		return Location{}, invalidCode(code)
	}
	rack, _ := strconv.Atoi(parts[2])
	shelf, _ := strconv.Atoi(parts[3])
	if ValidRack(rack) != nil {
		return Location{}, invalidCode(code)
	}
	return Location{Floor: parts[0], Area: parts[1], Rack: rack, Shelf: shelf, Bin: parts[4]}, nil
}

// NormalizeLabel upper-cases a floor, area or bin label and checks that it
// cannot collide with the code separator.
func NormalizeLabel(field, raw string) (string, error) {
	label := upper.String(strings.TrimSpace(raw))
	if !labelPattern.MatchString(label) {
		return "", shared.BadRequest("%s must be 1 to 10 letters or digits", field)
	}
	return label, nil
}

// ValidRack checks the rack number range.
func ValidRack(number int) error {
	if number < MinRack || number > MaxRack {
		return shared.BadRequest("Rack number must be between %d and %d", MinRack, MaxRack)
	}
	return nil
}

// ValidShelf checks the shelf level range.
func ValidShelf(level int) error {
	if level < MinShelf || level > MaxShelf {
		return shared.BadRequest("Shelf level must be between %d and %d", MinShelf, MaxShelf)
	}
	return nil
}

func invalidCode(code string) error {
	return shared.BadRequest("Invalid location code %q, expected FLOOR-AREA-RRR-SS-BIN", code)
}
