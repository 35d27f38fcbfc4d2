package knowledge

// mergeAccepts implements the deterministic external-update merge rule
// of spec §4.5:
//
//	if local is UNCREATED:                accept
//	elif incoming.clock >  local.clock:   accept
//	elif incoming.clock <  local.clock:   reject
//	elif incoming.quality >= local.quality: accept
//	else:                                  reject
func mergeAccepts(localStatus Status, localClock uint64, localQuality uint32, incomingClock uint64, incomingQuality uint32) bool {
	if localStatus == StatusUncreated {
		return true
	}
	if incomingClock > localClock {
		return true
	}
	if incomingClock < localClock {
		return false
	}
	return incomingQuality >= localQuality
}

// UpdateRecordFromExternal applies an inbound record from a transport,
// honoring the merge rule above. On accept, the payload, type, clock and
// quality are copied from incoming; the entry is placed in the global
// modified-set only if settings.AlwaysDisseminate is set (an externally
// originated update is not re-broadcast by default). Returns -1 on an
// empty name, 1 if the update was applied, 0 if rejected.
func (c *Context) UpdateRecordFromExternal(name string, incoming KnowledgeRecord, settings UpdateSettings) int {
	if name == "" {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := c.m.getRef(name)
	e := c.m.resolve(ref)

	if !mergeAccepts(e.record.status, e.record.clock, e.record.quality, incoming.clock, incoming.quality) {
		c.metrics.mergeRejected()
		return 0
	}

	if incoming.clock > c.clock {
		c.clock = incoming.clock
	}

	e.record = incoming.DeepCopy()
	e.record.status = StatusModified

	if settings.AlwaysDisseminate && !isLocalName(name) {
		c.globalModified[name] = ref
	}
	if isLocalName(name) {
		c.localModified[name] = ref
	}

	if settings.SignalChanges {
		c.cond.Broadcast()
		c.metrics.signal()
	}
	c.metrics.externalApplied()
	return 1
}
