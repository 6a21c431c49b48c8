package enforcer

import (
	"log/slog"
	"sync"

	"ace/aram"
	"ace/arf"
	"ace/cache"
	"ace/config"
	"ace/errs"
	"ace/gpdo"
	"ace/pkgmanager"
	"ace/terminal"
)

// Channel is the materialised decision a client holds for one opened
// logical channel. It is a value, deep-cloned from the cache at
// SetUpChannelAccess time, never shared with cache internals (§5's "each
// ChannelAccess handed to a client channel is a value and not shared").
type Channel struct {
	Number int
	Access cache.ChannelAccess
}

// Enforcer is the single-owner decision module described in §4.7/§5: a
// terminal handle, the rule cache, and the probing state, all guarded by
// one exclusive lock.
type Enforcer struct {
	mu sync.Mutex

	term terminal.Terminal
	pm   pkgmanager.PackageManager
	c    *cache.Cache

	profile    config.Profile
	state      State
	useARA     bool
	useARF     bool
	fullAccess bool

	// deniedReason records why Denied was reached, for AccessDenied's
	// surfaced message.
	deniedReason string
}

// New builds an Enforcer over term (the SE transport) and pm (the
// application/certificate resolver), with profile governing which rule
// sources are tried.
func New(term terminal.Terminal, pm pkgmanager.PackageManager, profile config.Profile) *Enforcer {
	return &Enforcer{
		term:    term,
		pm:      pm,
		c:       cache.New(),
		profile: profile,
		state:   Uninitialised,
	}
}

// State returns the current initialisation state, for diagnostics.
func (e *Enforcer) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cache returns the rule entries currently held, for CLI/diagnostic
// listing. The returned slice is a snapshot; it does not alias enforcer
// internals.
func (e *Enforcer) Cache() []cache.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.Entries()
}

// Lookup runs the §4.4.3 conflict-resolution search directly against aid
// and certHashes, bypassing the package-manager/channel bookkeeping
// SetUpChannelAccess does. Used by the CLI's "simulate" command to probe a
// loaded rule set without a real application installed.
func (e *Enforcer) Lookup(aid []byte, certHashes [][]byte) (cache.ChannelAccess, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.FindAccessRule(aid, certHashes)
}

// RefreshTag returns the currently loaded 8-byte refresh tag, if any.
func (e *Enforcer) RefreshTag() ([8]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.RefreshTag()
}

// Reset returns the enforcer to Uninitialised and forgets all cached rules.
func (e *Enforcer) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Enforcer) resetLocked() {
	e.state = Uninitialised
	e.useARA = false
	e.useARF = false
	e.fullAccess = false
	e.deniedReason = ""
	e.c.Reset()
}

// Initialize runs the ARA-then-ARF probing sequence (§4.7) and commits the
// resulting policy. loadAtStartup controls whether ARA's [All] bulk read
// runs; when false, ARA is still opened and its refresh tag read, but no
// rules are loaded, and no later lookup loads them on a miss.
func (e *Enforcer) Initialize(loadAtStartup bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = AraProbing
	isUICC := terminal.IsUICC(e.term.TerminalName())

	if e.profile.UseARAEnabled() {
		err := e.tryARA(loadAtStartup)
		if err == nil {
			e.state = AraLoaded
			e.useARA = true
			e.useARF = false
			e.fullAccess = false
			slog.Info("ace: ARA-M rules loaded", "state", e.state.String())
			return nil
		}
		if errs.IsMissingResource(err) {
			slog.Warn("ace: ARA-M channel unavailable, caller should retry", "error", err)
			e.state = Uninitialised
			return err
		}
		if !errs.IsNoSuchElement(err) {
			return e.denyLocked("ARA-M unavailable: " + err.Error())
		}
		slog.Info("ace: ARA-M applet not present", "isUICC", isUICC)
	}

	if isUICC && e.profile.UseARFEnabled() {
		e.state = ArfProbing
		err := e.tryARF()
		if err == nil {
			e.state = ArfLoaded
			e.useARA = false
			e.useARF = true
			e.fullAccess = false
			slog.Info("ace: ARF rules loaded", "state", e.state.String())
			return nil
		}
		if errs.IsMissingResource(err) {
			e.state = Uninitialised
			return err
		}
		if !errs.IsNoSuchElement(err) {
			return e.denyLocked("ARF unavailable: " + err.Error())
		}
		slog.Info("ace: ARF not present")
	}

	// Neither source available.
	if !isUICC {
		e.state = FullAccess
		e.useARA, e.useARF = false, false
		e.fullAccess = true
		slog.Info("ace: non-UICC terminal with no rule source, granting full access")
		return nil
	}
	if e.profile.FullAccessRequested() {
		e.state = FullAccess
		e.useARA, e.useARF = false, false
		e.fullAccess = true
		slog.Info("ace: UICC terminal with no rule source, full_access configured")
		return nil
	}
	return e.denyLocked("no rule source available on a UICC terminal and full_access is not set")
}

func (e *Enforcer) denyLocked(reason string) error {
	e.state = Denied
	e.useARA, e.useARF, e.fullAccess = false, false, false
	e.deniedReason = reason
	slog.Error("ace: denying everything", "reason", reason)
	return errs.SecurityFailure("%s", reason)
}

func (e *Enforcer) tryARA(loadAtStartup bool) error {
	driver := aram.New(e.term)
	channel, err := driver.Open()
	if err != nil {
		return err
	}
	defer driver.Close(channel)

	if !loadAtStartup {
		_, err := driver.RefreshTag(channel)
		return err
	}
	return driver.LoadAll(channel, e.c)
}

func (e *Enforcer) tryARF() error {
	fa, err := arf.Open(e.term)
	if err != nil {
		return err
	}
	defer fa.Close()
	return fa.Load(e.c)
}

// SetUpChannelAccess resolves and stamps the ChannelAccess a newly opened
// logical channel to (aid, packageName) should enforce, per §4.7.
func (e *Enforcer) SetUpChannelAccess(aid []byte, packageName string) (cache.ChannelAccess, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Denied || e.state == Uninitialised {
		reason := e.deniedReason
		if reason == "" {
			reason = "ACE not initialised"
		}
		return cache.ChannelAccess{}, errs.AccessDenied("%s", reason)
	}

	aidRef, err := gpdo.NormalizeAID(aid)
	if err != nil {
		return cache.ChannelAccess{}, err
	}
	if packageName == "" {
		return cache.ChannelAccess{}, errs.InvalidArgument("package name must not be empty")
	}

	certs, err := e.pm.SigningCertificates(packageName)
	if err != nil {
		return cache.ChannelAccess{}, err
	}
	hashes := pkgmanager.CertHashes(certs)

	ca, ok := e.c.FindAccessRule(aidRef.AID(), hashes)
	if ok && (ca.ApduAccess == cache.Allowed || ca.UseFilter) {
		ca = ca.Clone()
		ca.PackageName = packageName
		return ca, nil
	}

	if e.fullAccess {
		ca := cache.ChannelAccess{
			Access:      cache.Allowed,
			ApduAccess:  cache.Allowed,
			NfcAccess:   cache.Allowed,
			PackageName: packageName,
		}
		return ca, nil
	}
	return cache.ChannelAccess{}, errs.AccessDenied("no APDU access allowed")
}

// CheckCommand validates commandApdu against channel's stored access,
// invoked before every transmit per §4.7.
func (e *Enforcer) CheckCommand(ch Channel, commandApdu []byte) error {
	if ch.Access.Access != cache.Allowed {
		reason := ch.Access.Reason
		if reason == "" {
			reason = "channel access not allowed"
		}
		return errs.AccessDenied("%s", reason)
	}
	if ch.Access.UseFilter {
		if len(commandApdu) < 4 {
			return errs.InvalidArgument("command APDU shorter than 4 bytes cannot be filter-matched")
		}
		for _, f := range ch.Access.Filters {
			if f.Matches(commandApdu) {
				return nil
			}
		}
		return errs.AccessDenied("command does not match any APDU filter")
	}
	if ch.Access.ApduAccess == cache.Allowed {
		return nil
	}
	return errs.AccessDenied("APDU access not allowed")
}

// IsNFCEventAllowed resolves, per §4.7, whether aid's NFC HCI transaction
// event may be delivered to each of packageNames.
func (e *Enforcer) IsNFCEventAllowed(aid []byte, packageNames []string) []bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]bool, len(packageNames))
	if !e.useARA && !e.useARF {
		for i := range result {
			result[i] = e.fullAccess
		}
		return result
	}

	aidRef, err := gpdo.NormalizeAID(aid)
	if err != nil {
		return result // all false
	}
	for i, name := range packageNames {
		certs, err := e.pm.SigningCertificates(name)
		if err != nil {
			continue
		}
		hashes := pkgmanager.CertHashes(certs)
		ca, ok := e.c.FindAccessRule(aidRef.AID(), hashes)
		result[i] = ok && ca.NfcAccess == cache.Allowed
	}
	return result
}
