// ABOUTME: Record accessors shared by every stored entity
// ABOUTME: Lets the generic store assign ids and timestamps without reflection
package models

import "time"

// Record is implemented by pointers to every persisted entity.
type Record interface {
	RecordID() int64
	SetRecordID(id int64)
	// Stamp sets UpdatedAt, and CreatedAt too when created is true.
	Stamp(now time.Time, created bool)
}

func (u *User) RecordID() int64      { return u.ID }
func (u *User) SetRecordID(id int64) { u.ID = id }
func (u *User) Stamp(now time.Time, created bool) {
	if created {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

func (c *Client) RecordID() int64      { return c.ID }
func (c *Client) SetRecordID(id int64) { c.ID = id }
func (c *Client) Stamp(now time.Time, created bool) {
	if created {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func (p *ClientPotential) RecordID() int64      { return p.ID }
func (p *ClientPotential) SetRecordID(id int64) { p.ID = id }
func (p *ClientPotential) Stamp(now time.Time, created bool) {
	if created {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func (t *Task) RecordID() int64      { return t.ID }
func (t *Task) SetRecordID(id int64) { t.ID = id }
func (t *Task) Stamp(now time.Time, created bool) {
	if created {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

func (m *Meeting) RecordID() int64      { return m.ID }
func (m *Meeting) SetRecordID(id int64) { m.ID = id }
func (m *Meeting) Stamp(now time.Time, created bool) {
	if created {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

func (na *NeedsAnalysis) RecordID() int64      { return na.ID }
func (na *NeedsAnalysis) SetRecordID(id int64) { na.ID = id }
func (na *NeedsAnalysis) Stamp(now time.Time, created bool) {
	if created {
		na.CreatedAt = now
	}
	na.UpdatedAt = now
}
