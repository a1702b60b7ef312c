// Package models defines the core domain models for nbbang.
//
// # Models
//
//   - Meeting: a settlement session (a dinner, a trip) that owns members and payments
//   - Member: a participant of a meeting; exactly one member per meeting is the leader
//   - Payment: one expense fronted by a member and shared by a set of attending members
//   - Draft / DraftItem: an AI-generated settlement that has not been turned into payments
//   - User: a registered account that owns meetings
//
// # Conventions
//
// 1. **Integer money**: every amount is an int64 count of won. No floating point.
// 2. **Sign of Member.Amount**: positive means the member must send money, negative means the
// member is owed money.
// 3. **IDs**: members, payments and meetings use database row ids. Draft items refer to members
// by name because AI output has no member identities.
package models
