// Package providers hosts the built-in provider integration packs and the
// devkit fixtures used to exercise a pack against the onboarding flow.
package providers
