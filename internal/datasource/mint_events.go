package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"irys-monitor/internal/features/mintstats"
)

// topMintGroupQuery returns the single (verifier, ref, recipient) group with
// the most minted quantity in [$1, $2), block_timestamp being epoch seconds.
const topMintGroupQuery = `
WITH time_range AS (
	SELECT $1::bigint AS start_time, $2::bigint AS end_time
)
SELECT
	COALESCE(SUM(quantity)::text, '0') AS total_mints,
	COALESCE(verifier, 'N/A') AS top_verifier,
	COUNT(*)::text AS verifier_count,
	COALESCE(ref, 'N/A') AS top_ref,
	COUNT(*)::text AS ref_count,
	COALESCE(recipient, 'N/A') AS top_recipient,
	COUNT(*)::text AS recipient_count,
	TO_CHAR(TO_TIMESTAMP(start_time), 'YYYY-MM-DD HH24:MI:SS UTC') AS start_time,
	TO_CHAR(TO_TIMESTAMP(end_time), 'YYYY-MM-DD HH24:MI:SS UTC') AS end_time
FROM art_mint_events, time_range
WHERE block_timestamp >= start_time AND block_timestamp < end_time
GROUP BY verifier, ref, recipient, start_time, end_time
ORDER BY SUM(quantity) DESC, COUNT(*) DESC
LIMIT 1`

// TopMintGroup runs the mint aggregate for [start, end). It returns nil when
// no events fall inside the window. NULL columns are replaced with the
// report defaults.
func (d *Datasource) TopMintGroup(ctx context.Context, start, end time.Time) (*mintstats.MintStatsWindow, error) {
	var total, verifier, verifierCount, ref, refCount, recipient, recipientCount, startTime, endTime sql.NullString

	row := d.Conn.QueryRowContext(ctx, topMintGroupQuery, start.Unix(), end.Unix())
	err := row.Scan(&total, &verifier, &verifierCount, &ref, &refCount, &recipient, &recipientCount, &startTime, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mint events: %w", err)
	}

	def := mintstats.DefaultWindow()
	return &mintstats.MintStatsWindow{
		TotalMints:     orDefault(total, def.TotalMints),
		TopVerifier:    orDefault(verifier, def.TopVerifier),
		VerifierCount:  orDefault(verifierCount, def.VerifierCount),
		TopRef:         orDefault(ref, def.TopRef),
		RefCount:       orDefault(refCount, def.RefCount),
		TopRecipient:   orDefault(recipient, def.TopRecipient),
		RecipientCount: orDefault(recipientCount, def.RecipientCount),
		WindowStart:    orDefault(startTime, def.WindowStart),
		WindowEnd:      orDefault(endTime, def.WindowEnd),
	}, nil
}

func orDefault(v sql.NullString, def string) string {
	if !v.Valid {
		return def
	}
	return v.String
}
