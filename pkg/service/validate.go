package service

import (
	"github.com/cohesivestack/valgo"
	"github.com/theapemachine/spiralmem/pkg/errors"
	"github.com/theapemachine/spiralmem/pkg/memory"
)

// Request validation. Each validator returns nil or an ErrValidation copy
// carrying the per-field messages, so handlers stay one-liners.

func checked(val *valgo.Validation) error {
	if val.Valid() {
		return nil
	}

	fields := map[string][]string{}

	for name, fieldErr := range val.Errors() {
		fields[name] = fieldErr.Messages()
	}

	return errors.ErrValidation.WithData(fields)
}

func validateIdentity(in memory.IdentityInput) error {
	return checked(valgo.Is(
		valgo.String(in.NodeID, "node_id").Not().Blank(),
	))
}

func validateConsent(in memory.ConsentInput) error {
	return checked(valgo.Is(
		valgo.String(in.NodeID, "node_id").Not().Blank(),
		valgo.String(string(in.Scope), "scope").InSlice(memory.Scopes),
	))
}

func validateThought(in memory.ThoughtInput) error {
	val := valgo.Is(
		valgo.String(in.Text, "text").Not().Blank(),
	)

	if in.Kind != "" {
		val.Is(valgo.String(in.Kind, "kind").InSlice(memory.ThoughtKinds))
	}

	return checked(val)
}

func validateState(in memory.StateInput) error {
	val := valgo.Is(
		valgo.String(in.NodeID, "node_id").Not().Blank(),
	)

	if in.Scope != "" {
		val.Is(valgo.String(string(in.Scope), "scope").InSlice(memory.Scopes))
	}

	for _, f := range in.Feels {
		val.Is(valgo.String(f.TargetID, "feels.target_id").Not().Blank())
	}

	return checked(val)
}

func validateClaim(in memory.ClaimInput) error {
	val := valgo.Is(
		valgo.String(in.Text, "text").Not().Blank(),
	)

	if in.Truthiness != nil {
		val.Is(valgo.Number(*in.Truthiness, "truthiness").Between(0, 1))
	}

	if in.Confidence != nil {
		val.Is(valgo.Number(*in.Confidence, "confidence").Between(0, 1))
	}

	return checked(val)
}

func validateRitual(in memory.RitualInput) error {
	return checked(valgo.Is(
		valgo.String(in.Name, "name").Not().Blank(),
		valgo.String(in.Code, "code").Not().Blank(),
	))
}

func validateLaw(in memory.LawInput) error {
	return checked(valgo.Is(
		valgo.String(in.Name, "name").Not().Blank(),
		valgo.String(in.Text, "text").Not().Blank(),
	))
}

func validateEvent(in memory.EventInput) error {
	return checked(valgo.Is(
		valgo.String(in.Name, "name").Not().Blank(),
	))
}
