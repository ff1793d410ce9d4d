// Package core contains the canonical onboarding domain: the flow state and
// its token codec, the request guard, the tariff connection pipeline, and the
// orchestrating service. Transport surfaces and storage adapters depend on
// this package; core must not depend on them.
package core
