// Package llm defines the intent interpreter contract: given the recent
// conversation and a new message, return a reply and an optional structured
// intent. Provider adapters live in sub-packages.
package llm
