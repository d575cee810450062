package envelope

import (
	"encoding/json"
	"fmt"
)

// Decode parses raw bytes into an Envelope and its typed payload. It fails
// with a *ValidationError (terminal, invalid_input) when required fields
// are missing, event_type is unknown, the timestamp is unparseable, or the
// payload fails its per-type validation. Decoding is total: no partially
// valid envelope is ever returned alongside a non-nil error.
func Decode(data []byte) (Envelope, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, nil, &ValidationError{Field: "envelope", Reason: err.Error()}
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, nil, err
	}

	payload, err := decodePayload(env.EventType, env.Payload)
	if err != nil {
		return Envelope{}, nil, err
	}
	if v, ok := payload.(payloadValidator); ok {
		if err := v.Validate(); err != nil {
			return Envelope{}, nil, err
		}
	}
	return env, payload, nil
}

func decodePayload(op OperationType, raw json.RawMessage) (any, error) {
	var target any
	switch op {
	case OpQualityAssessment:
		target = &QualityAssessmentPayload{}
	case OpOneXCompliance:
		target = &OneXComplianceInput{}
	case OpPatternExtraction:
		target = &PatternExtractionInput{}
	case OpArchitecturalCompliance:
		target = &ArchitecturalComplianceInput{}
	case OpComprehensiveAnalysis:
		target = &ComprehensiveAnalysisInput{}
	case OpHybridScore:
		target = &HybridScoreInput{}
	case OpInfrastructureScan:
		target = &InfrastructureScanInput{}
	case OpModelDiscovery:
		target = &ModelDiscoveryInput{}
	case OpSchemaDiscovery:
		target = &SchemaDiscoveryInput{}
	case OpDependencyAudit:
		target = &DependencyAuditInput{}
	default:
		return nil, &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown operation type %q", op)}
	}

	if len(raw) == 0 {
		return nil, &ValidationError{Field: "payload", Reason: "must not be empty"}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}
	return derefPayload(target), nil
}

// derefPayload returns the pointed-to value so callers receive the typed
// payload by value, matching the Validate() receiver signatures above.
func derefPayload(target any) any {
	switch t := target.(type) {
	case *QualityAssessmentPayload:
		return *t
	case *OneXComplianceInput:
		return *t
	case *PatternExtractionInput:
		return *t
	case *ArchitecturalComplianceInput:
		return *t
	case *ComprehensiveAnalysisInput:
		return *t
	case *HybridScoreInput:
		return *t
	case *InfrastructureScanInput:
		return *t
	case *ModelDiscoveryInput:
		return *t
	case *SchemaDiscoveryInput:
		return *t
	case *DependencyAuditInput:
		return *t
	default:
		return target
	}
}

// Encode serializes an envelope deterministically: encoding/json's map key
// ordering and struct field ordering are stable, so two encodes of an
// equal Envelope value always yield byte-identical output.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// EncodePayload marshals a typed payload into the envelope's raw Payload
// field, returning the envelope ready to Encode.
func EncodePayload(env Envelope, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	env.Payload = raw
	return env, nil
}
