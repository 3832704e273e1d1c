package api

import (
	"fmt"
	"strings"
)

// CoreFeatures is a bit flag of WebAssembly Core specification features, beyond the 1.0 (20191205) baseline.
//
// Ex. To enable a feature on top of the default:
//
//	features := api.CoreFeaturesV2.SetEnabled(api.CoreFeatureReferenceTypes, false)
type CoreFeatures uint64

// CoreFeaturesV1 are features included in the WebAssembly Core Specification 1.0 (20191205).
const CoreFeaturesV1 = CoreFeatureMutableGlobal

// CoreFeaturesV2 are features included in the WebAssembly Core Specification 2.0 draft, except SIMD.
const CoreFeaturesV2 = CoreFeaturesV1 |
	CoreFeatureBulkMemoryOperations |
	CoreFeatureMultiValue |
	CoreFeatureNonTrappingFloatToIntConversion |
	CoreFeatureReferenceTypes |
	CoreFeatureSignExtensionOps

const (
	// CoreFeatureBulkMemoryOperations adds instructions modify ranges of memory or table entries
	// ("bulk-memory-operations"), passive segments and the data count section.
	CoreFeatureBulkMemoryOperations CoreFeatures = 1 << iota

	// CoreFeatureMultiValue enables multiple values ("multi-value"): functions and blocks with several results, and
	// blocks with parameters.
	CoreFeatureMultiValue

	// CoreFeatureMutableGlobal allows globals to be mutable. This is enabled in 1.0 (20191205).
	CoreFeatureMutableGlobal

	// CoreFeatureNonTrappingFloatToIntConversion enables the saturating truncation instructions
	// ("nontrapping-float-to-int-conversion").
	CoreFeatureNonTrappingFloatToIntConversion

	// CoreFeatureReferenceTypes enables various instructions and features related to table and new reference types
	// ("reference-types"): externref, multiple tables and the table instructions.
	CoreFeatureReferenceTypes

	// CoreFeatureSignExtensionOps enables sign extension instructions ("sign-extension-ops").
	CoreFeatureSignExtensionOps
)

// SetEnabled enables or disables the feature or group of features.
func (f CoreFeatures) SetEnabled(feature CoreFeatures, val bool) CoreFeatures {
	if val {
		return f | feature
	}
	return f &^ feature
}

// IsEnabled returns true if the feature (or group of features) is enabled.
func (f CoreFeatures) IsEnabled(feature CoreFeatures) bool {
	return f&feature == feature
}

// RequireEnabled returns an error if the feature (or group of features) is not enabled.
func (f CoreFeatures) RequireEnabled(feature CoreFeatures) error {
	if f&feature != feature {
		return fmt.Errorf("feature %q is disabled", feature)
	}
	return nil
}

// String implements fmt.Stringer by returning each enabled feature.
func (f CoreFeatures) String() string {
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := CoreFeatures(1 << i)
		if f.IsEnabled(target) {
			if name := featureName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

func featureName(f CoreFeatures) string {
	switch f {
	case CoreFeatureMutableGlobal:
		return "mutable-global"
	case CoreFeatureSignExtensionOps:
		return "sign-extension-ops"
	case CoreFeatureMultiValue:
		return "multi-value"
	case CoreFeatureNonTrappingFloatToIntConversion:
		return "nontrapping-float-to-int-conversion"
	case CoreFeatureBulkMemoryOperations:
		return "bulk-memory-operations"
	case CoreFeatureReferenceTypes:
		return "reference-types"
	}
	return ""
}
