// ABOUTME: Key-value backend contract for the entity store
// ABOUTME: Records live under {collection}/{id} keys, one JSON document each
package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Backend is the persistent key-value layer under the store. Implementations
// exist for SQLite (db), Badger and Charm Cloud (charm).
type Backend interface {
	// Get returns the value for key and false when it does not exist.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	KeysWithPrefix(prefix string) ([]string, error)
	Close() error
}

// Collection names, shared with the remote mirror directory layout.
const (
	UsersCollection      = "users"
	ClientsCollection    = "clients"
	MeetingsCollection   = "meetings"
	TasksCollection      = "tasks"
	AnalysesCollection   = "needs-analyses"
	PotentialsCollection = "client-potentials"
)

// sessionKey holds the logged-in user between process runs.
const sessionKey = "session/current-user"

func recordKey(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

func parseRecordKey(collection, key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, collection+"/")
	if !ok {
		return 0, fmt.Errorf("key %q is outside collection %s", key, collection)
	}
	return strconv.ParseInt(raw, 10, 64)
}
