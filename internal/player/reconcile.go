package player

// ReconcileParams are the tunable constants of position reconciliation.
type ReconcileParams struct {
	// SnapThresholdMS is the desync beyond which the local clock snaps.
	SnapThresholdMS int64
	// DeadZoneMS is the desync at or below which snapshots are ignored.
	DeadZoneMS int64
	// NudgeProportion is the share of the gap closed per snapshot.
	NudgeProportion float64
}

func defaultReconcileParams() ReconcileParams {
	return ReconcileParams{
		SnapThresholdMS: defaultSnapThresholdMS,
		DeadZoneMS:      defaultDeadZoneMS,
		NudgeProportion: defaultNudgeProportion,
	}
}

// reconcilePosition folds a server-reported position into the locally
// ticked one. Large desyncs snap, mid-range desyncs converge smoothly,
// and small desyncs are left alone so network noise never causes jitter.
func reconcilePosition(localMS, serverMS int64, p ReconcileParams) int64 {
	desync := absMS(localMS - serverMS)
	switch {
	case desync > p.SnapThresholdMS:
		return serverMS
	case desync > p.DeadZoneMS:
		return localMS + int64(p.NudgeProportion*float64(serverMS-localMS))
	default:
		return localMS
	}
}
