package session

import (
	"github.com/mreilly/povox/internal/i18n"
	"github.com/mreilly/povox/internal/podetail"
)

// Context is the single-owner conversation record. It is created with the
// controller, mutated only under the controller's lock, and survives for
// the lifetime of one agent session.
type Context struct {
	Locale       string
	PONumber     string
	Details      *podetail.Record
	StatusKey    i18n.Key
	Status       string
	PendingAudio bool
}

// clearData drops the PO data accumulated by previous turns. The
// established locale deliberately survives: a reset starts a new lookup,
// not a new speaker.
func (c *Context) clearData() {
	c.PONumber = ""
	c.Details = nil
	c.PendingAudio = false
}
