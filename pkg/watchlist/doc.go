// Package watchlist loads offer watchlists from plain-text files.
//
// Two file formats are supported. Format A starts with a threshold header
// line ("cena minimalna: 40zł") followed by one offer ID or offer URL per
// line. Format B has one "ID;MIN_PRICE" pair per line. The product name is
// the file name without its extension.
package watchlist
