// ABOUTME: Charm Cloud link status for the charm storage driver
// ABOUTME: Reports server, auto-sync, account id and key count

package charm

// Status summarises the charm connection of this device.
type Status struct {
	Host      string
	AutoSync  bool
	Connected bool
	ID        string
	Keys      int
}

// Status reports the link state. Charm uses SSH keys for authentication, so
// a device is connected as soon as an account id can be resolved.
func (c *Client) Status() Status {
	cfg := c.Config()
	st := Status{Host: cfg.Host, AutoSync: cfg.AutoSync}

	if id, err := c.ID(); err == nil {
		st.Connected = true
		st.ID = id
	}
	if keys, err := c.Keys(); err == nil {
		st.Keys = len(keys)
	}
	return st
}
