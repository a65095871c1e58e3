// ABOUTME: Small helpers shared by crm tests
// ABOUTME: Encodes values the way the mirror writes them
package crm

import "encoding/json"

func marshalForTest(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
