// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package plugins provides the built-in recommendation plugins.
//
// Each plugin implements recommend.Plugin plus the capability interfaces of
// the stages it takes part in:
//
//   - new_content: generate + score, inverse recency
//   - trending: generate + score, inverse popularity position
//   - user_interests: generate + score, topical interest boost
//   - similar_content: generate + score, similarity to completed content
//   - random: generate + score, uniform exploration
//   - pad_results: alter + score, pads short candidate sets
//   - revision: rerank, injects review material
//
// Plugin score ranges differ on purpose. The combine strategy is the only
// place scores from different plugins meet.
package plugins
