package mysql

const insertSettingsSQL = `
INSERT INTO prsettings
  (id, user_id, wallet, cost, name, description, comment_limit, tags)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const updateSettingsSQL = `
UPDATE prsettings SET
  wallet        = ?,
  cost          = ?,
  name          = ?,
  description   = ?,
  comment_limit = ?,
  tags          = ?
WHERE id = ?
`

const getSettingsByUserSQL = `
SELECT id, user_id, wallet, cost, name, description, comment_limit, tags
FROM prsettings
WHERE user_id = ?
ORDER BY id
LIMIT 1
`

const getSettingsByIDSQL = `
SELECT id, user_id, wallet, cost, name, description, comment_limit, tags
FROM prsettings
WHERE id = ?
`

const insertReviewSQL = `
INSERT INTO reviews
  (id, settings_id, name, tag, rating, comment, paid, payment_hash, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// The reconciliation loop is the only writer that flips paid; the flag is
// never set back to 0 anywhere.
const markPaidSQL = `
UPDATE reviews SET paid = 1, payment_hash = ? WHERE id = ?
`

const deleteReviewSQL = `
DELETE FROM reviews WHERE id = ?
`

const getReviewSQL = `
SELECT id, settings_id, name, tag, rating, comment, paid, payment_hash, created_at
FROM reviews
WHERE id = ?
`

const getReviewByHashSQL = `
SELECT id, settings_id, name, tag, rating, comment, paid, payment_hash, created_at
FROM reviews
WHERE payment_hash = ?
LIMIT 1
`

// Keyset pagination base; the repo appends the optional cursor bound and the
// ORDER BY / LIMIT tail. Ties on created_at fall back to id for a stable order.
const listReviewsPrefix = `
SELECT id, settings_id, name, tag, rating, comment, paid, payment_hash, created_at
FROM reviews
WHERE settings_id = ? AND tag = ? AND paid = 1
`

const listReviewsTail = ` ORDER BY created_at DESC, id DESC LIMIT ?`

// -----------------------------------------------------------------------------
// AGGREGATES (paid reviews only)
// -----------------------------------------------------------------------------

const ratingStatsSQL = `
SELECT COUNT(*), COALESCE(AVG(CAST(rating AS DOUBLE)), 0)
FROM reviews
WHERE settings_id = ? AND tag = ? AND paid = 1
`

const ratingStatsAllTagsSQL = `
SELECT tag, COUNT(*) AS review_count, AVG(CAST(rating AS DOUBLE)) AS avg_rating
FROM reviews
WHERE settings_id = ? AND paid = 1
GROUP BY tag
ORDER BY review_count DESC, tag ASC
`
