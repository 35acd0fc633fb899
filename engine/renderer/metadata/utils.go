package metadata

import "fmt"

func ErrUnknownEnum(kind, value string) error {
	return fmt.Errorf("string %s is not a valid %s", value, kind)
}
