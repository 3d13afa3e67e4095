// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sales loads online sales exports and derives the aggregates shown on
// the dashboard: headline KPIs, monthly revenue, top products and top cities,
// plus the plain-text KPI summary handed to the insight generator.
//
// A Dataset is immutable once loaded. Filter and the aggregate functions never
// modify their input, so a single Dataset can be shared between HTTP handlers.
package sales
