// Command statesnap inspects and manages workflow state snapshots.
//
// Snapshot files live in one directory per series and are named
// "<prefix>_<suffix>.<protocol>.pickle<ext>", with a "<prefix>_current..."
// symlink pointing at the newest one. Typical use:
//
//	statesnap --dir /var/lib/run --prefix train list
//	statesnap --dir /var/lib/run --prefix train current
//	statesnap inspect --decode /var/lib/run/train_12.4.pickle.gz
//	statesnap recompress --to zst --remove /var/lib/run/train_*.4.pickle.gz
//	statesnap --prefix train prune --keep 5 --dry-run
//	statesnap -c statesnap.yaml agent --role master --tick-every 1s
package main
