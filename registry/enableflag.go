package registry

// EnableFlag is the two-bit current/desired state used by commands and
// resources to reconcile subscription intent with the broker's actual
// subscribe/unsubscribe acknowledgements:
//
//	disabled (00) --enable-req--> want-enable (01) --subscribe-ok--> enabled (11)
//	enabled  (11) --disable-req-> want-disable (10) --unsubscribe-ok-> disabled (00)
type EnableFlag struct {
	current bool
	desired bool
}

// RequestEnable moves the flag to want-enable, a no-op if already enabled or
// already wanting enable.
func (f *EnableFlag) RequestEnable() { f.desired = true }

// RequestDisable moves the flag to want-disable.
func (f *EnableFlag) RequestDisable() { f.desired = false }

// NeedsSubscribe reports whether the current state requires sending a
// SUBSCRIBE: desired but not yet current.
func (f *EnableFlag) NeedsSubscribe() bool { return f.desired && !f.current }

// NeedsUnsubscribe reports whether the current state requires sending an
// UNSUBSCRIBE: not desired but still current.
func (f *EnableFlag) NeedsUnsubscribe() bool { return !f.desired && f.current }

// ConfirmSubscribed moves want-enable to enabled after a successful SUBACK.
func (f *EnableFlag) ConfirmSubscribed() { f.current = true }

// ConfirmUnsubscribed moves want-disable to disabled after UNSUBACK.
func (f *EnableFlag) ConfirmUnsubscribed() { f.current = false }

// Enabled reports whether the feature is fully enabled (11).
func (f *EnableFlag) Enabled() bool { return f.current && f.desired }

// ResetCurrent clears the acknowledged state on a fresh MQTT session
// (a new session has no memory of prior SUBSCRIBEs) while preserving the
// application's desired state, so a feature the app had enabled resumes
// automatically after reconnect.
func (f *EnableFlag) ResetCurrent() { f.current = false }

// Reset clears both current and desired, used for subscriptions whose
// desired state the controller itself derives rather than the application
// (the config-update subscription, re-armed only after the next
// first-connect config dump).
func (f *EnableFlag) Reset() { f.current, f.desired = false, false }
