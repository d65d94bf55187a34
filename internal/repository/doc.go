// Package repository maps model entities onto store items and reads them back.
//
// Key scheme:
//
//	EXCHANGE#<id>     INFO#<ts>               exchange
//	EXCHANGE#<id>     STATS#<ts>              exchange_stats
//	TOKEN#<id>        INFO#<ts>               token
//	TOKEN#<id>        STATS#<ts>              token_stats
//	TOKEN#<id>        PLATFORM#<chain>#<ts>   platform
//	QUICK_PRICE#<SYM> PRICE#<ts>              quick_price
package repository
