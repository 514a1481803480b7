// Package correlate infers which scheme produced an unlabeled digest
// column from the shape of its frequency distribution.
//
// For every candidate scheme a reference histogram is computed by hashing
// the reference population with that scheme. The unlabeled column's
// histogram is aligned with each reference histogram on their digest keys
// and compared with Spearman rank correlation and, optionally, with
// Jensen-Shannon and cosine similarity. The best positive score per metric
// names the most likely scheme.
package correlate
