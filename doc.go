// Package auth implements identity and access control for the campus
// management service: JWT issuance and verification, role guards, and the
// teacher account lifecycle backed by Bun repositories.
//
// Roles:
//   - Roles form a closed set (ADMIN, TEACHER, STUDENT). Tokens or records
//     carrying any other value are rejected.
//
// Account lifecycle:
//   - A TEACHER user without a Teacher row is pending approval. Self
//     registration lands there; administrators either create teachers directly
//     (user and profile in one transaction) or approve pending accounts by
//     assigning a department.
//   - Approval is an upsert keyed by user id. Re-approving an active teacher
//     reassigns the department, last write wins.
//   - Deletion removes the Teacher row before the User row, in one transaction.
//
// Guards:
//   - Guard.Require verifies a raw token and checks the role set. Every failure
//     collapses to ErrUnauthorized so callers cannot tell which check failed.
//   - Guards never read the store. A role change is observed only after the
//     token is reissued.
package auth
