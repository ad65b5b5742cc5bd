package classifier

import (
	"regexp"

	"github.com/guidestone/guidestone/model"
)

// intentRule pairs an intent with its pattern set. Rules are evaluated in
// order; the first intent with any matching pattern wins.
type intentRule struct {
	intent   model.QueryIntent
	patterns []*regexp.Regexp
}

var intentRules = []intentRule{
	{
		intent: model.IntentQualificationCheck,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bqualif\w*\b`),
			regexp.MustCompile(`(?i)\beligib\w*\b`),
			regexp.MustCompile(`(?i)\bcan\b.*\b(borrower|applicant|they|someone|i)\b.*\b(get|qualify|be approved)\b`),
			regexp.MustCompile(`(?i)\b(approve|approval|declined?|meets? the criteria)\b`),
		},
	},
	{
		intent: model.IntentDocumentationInquiry,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bdocument(ation|s)?\b`),
			regexp.MustCompile(`(?i)\b(bank statements?|tax returns?|paystubs?|w-?2s?|1099s?)\b`),
			regexp.MustCompile(`(?i)\b(verification|proof) of (income|employment|assets|funds)\b`),
			regexp.MustCompile(`(?i)\bwhat\b.*\b(need to provide|required to submit)\b`),
		},
	},
	{
		intent: model.IntentPolicyLookup,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(policy|policies|guidelines?)\b`),
			regexp.MustCompile(`(?i)\b(require(s|d|ments?)?|allowed|permitted|prohibited)\b`),
			regexp.MustCompile(`(?i)\b(maximum|minimum|max|min)\b.*\b(fico|ltv|dti|loan amount|score|ratio)\b`),
			regexp.MustCompile(`(?i)\bwhat (is|are) the\b.*\b(rule|limit|threshold)s?\b`),
		},
	},
	{
		intent: model.IntentCalculationRequest,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcalculat\w*\b`),
			regexp.MustCompile(`(?i)\bcomput\w*\b`),
			regexp.MustCompile(`(?i)\bhow much\b`),
			regexp.MustCompile(`(?i)\b(rate|price|pricing) (adjustment|for)\b`),
			regexp.MustCompile(`(?i)\bllpa\b`),
		},
	},
	{
		intent: model.IntentComparisonAnalysis,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcompar\w*\b`),
			regexp.MustCompile(`(?i)\b(versus|vs\.?)\b`),
			regexp.MustCompile(`(?i)\bdifference between\b`),
			regexp.MustCompile(`(?i)\bwhich (program|option|product) (is|would be) better\b`),
		},
	},
	{
		intent: model.IntentExceptionInquiry,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bexceptions?\b`),
			regexp.MustCompile(`(?i)\bcompensating factors?\b`),
			regexp.MustCompile(`(?i)\b(waivers?|overlays?)\b`),
		},
	},
	{
		intent: model.IntentProcessNavigation,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(process|procedure|workflow)\b`),
			regexp.MustCompile(`(?i)\bhow (do|to|does)\b`),
			regexp.MustCompile(`(?i)\b(steps?|stages?) (to|for|in)\b`),
			regexp.MustCompile(`(?i)\bwhere (do|can|should)\b`),
		},
	},
}

// intentModes is the static intent to mode mapping. Position determines
// weight; earlier modes rank higher.
var intentModes = map[model.QueryIntent][]model.RetrievalMode{
	model.IntentQualificationCheck:   {model.ModeDecisionPath, model.ModeMatrixIntersection, model.ModeVectorSimilarity},
	model.IntentDocumentationInquiry: {model.ModeVectorSimilarity, model.ModeGraphTraversal},
	model.IntentPolicyLookup:         {model.ModeVectorSimilarity, model.ModeGraphTraversal},
	model.IntentCalculationRequest:   {model.ModeMatrixIntersection, model.ModeVectorSimilarity},
	model.IntentComparisonAnalysis:   {model.ModeHybridReasoning, model.ModeVectorSimilarity, model.ModeGraphTraversal},
	model.IntentExceptionInquiry:     {model.ModeDecisionPath, model.ModeVectorSimilarity, model.ModeGraphTraversal},
	model.IntentProcessNavigation:    {model.ModeGraphTraversal, model.ModeVectorSimilarity},
}

// modeWeights assigns selection weights by list position.
var modeWeights = []float64{1.0, 0.8, 0.6, 0.4}

// Domain keyword tables. Matches feed the feature vector and the
// complexity score.
var (
	programKeywords       = []string{"nqm", "non-qm", "dscr", "conventional", "jumbo", "fha", "va", "usda", "heloc", "bridge", "bank statement program", "full doc", "alt doc"}
	borrowerKeywords      = []string{"borrower", "applicant", "foreign national", "self-employed", "first-time", "co-borrower", "guarantor", "itin", "non-permanent resident"}
	propertyKeywords      = []string{"property", "primary residence", "second home", "investment property", "condo", "condotel", "sfr", "multi-family", "2-4 unit", "manufactured"}
	documentationKeywords = []string{"document", "bank statement", "tax return", "paystub", "w-2", "w2", "1099", "voe", "p&l", "profit and loss", "asset statement"}
	matrixKeywords        = []string{"matrix", "matrices", "grid", "tier", "llpa", "pricing", "adjustment", "rate sheet"}
)

var (
	interrogativePattern = regexp.MustCompile(`(?i)^\s*(who|what|when|where|why|how|which|can|does|do|is|are|should|will)\b|\?\s*$`)
	exceptionPattern     = regexp.MustCompile(`(?i)\b(exceptions?|compensating factors?|waivers?|overlays?|unless)\b`)
	scenarioPattern      = regexp.MustCompile(`(?i)\b(scenario|situation|case|suppose|assuming|hypothetical|a borrower with)\b`)
	calculationPattern   = regexp.MustCompile(`(?i)\b(calculat\w*|comput\w*|how much|total|sum|percentage)\b`)
	numberPattern        = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Parameter extraction. Each pattern captures a single numeric group.
var (
	ficoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{3})\s*(?:fico|credit score)\b`),
		regexp.MustCompile(`(?i)\b(?:fico|credit score)(?:\s+(?:score|of|at|is))*\s+(\d{3})\b`),
	}
	ltvPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d+)?)\s*%?\s*(?:cltv|ltv)\b`),
		regexp.MustCompile(`(?i)\b(?:cltv|ltv)(?:\s+(?:ratio|of|at|is))*\s+(\d{1,3}(?:\.\d+)?)\s*%?`),
	}
	dtiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d+)?)\s*%?\s*dti\b`),
		regexp.MustCompile(`(?i)\bdti(?:\s+(?:ratio|of|at|is))*\s+(\d{1,3}(?:\.\d+)?)\s*%?`),
	}
	loanAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d+)?)\s*(?:k|m|mm|million)?\b`),
		regexp.MustCompile(`(?i)\bloan (?:amount|of)\s+\$?\s?([\d,]+(?:\.\d+)?)`),
	}
	loanAmountScale = regexp.MustCompile(`(?i)\$\s?[\d,.]+\s*(k|m|mm|million)\b`)
)
