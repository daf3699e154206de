package truco

// PerrosOffer is the combined all-in maneuver: contra flor, falta envido
// and the next truco level offered as a single take-it-or-leave-it bundle.
// Each component is present only when it was legal at offer time.
type PerrosOffer struct {
	Seat int
	Team int

	ContraFlor  bool
	FaltaEnvido bool
	TrucoLevel  TrucoLevel // TrucoNone when no truco component

	// The offer freezes the pending ladders without mutating them, so a
	// cancel simply discards it and play resumes where it stood.
	responses map[int]*PerrosResponse
}

// PerrosResponse is one responder's choice per component.
type PerrosResponse struct {
	Seat        int
	ContraFlor  bool
	FaltaEnvido bool
	Truco       bool
}

func (o *PerrosOffer) record(r *PerrosResponse, responders []int) (done bool, waiting []int) {
	o.responses[r.Seat] = r
	for _, s := range responders {
		if _, ok := o.responses[s]; !ok {
			waiting = append(waiting, s)
		}
	}
	return len(waiting) == 0, waiting
}

// accepted reports, per component, whether any responder took it on.
func (o *PerrosOffer) accepted() (contraFlor, faltaEnvido, truco bool) {
	for _, r := range o.responses {
		if r.ContraFlor {
			contraFlor = true
		}
		if r.FaltaEnvido {
			faltaEnvido = true
		}
		if r.Truco {
			truco = true
		}
	}
	return
}
