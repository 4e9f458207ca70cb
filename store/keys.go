package store

import "strconv"

// KV 适配器的 key 约定。离线任务按同样的约定写入。
const (
	movieFeatureKeyPrefix  = "movie:features:"  // + movie_id -> JSON core.FeatureRow
	userFavoritesKeyPrefix = "user:favorites:"  // + user_id  -> JSON []int64
	userRatingsKeyPrefix   = "user:ratings:"    // + user_id  -> JSON map[movie_id]rating
	userRecsKeyPrefix      = "user:recs:"       // + user_id  -> JSON core.RecommendationSet
	profileSnapshotKey     = "profiles:snapshot" //           -> JSON []core.UserProfile
)

func movieFeatureKey(movieID int64) string {
	return movieFeatureKeyPrefix + strconv.FormatInt(movieID, 10)
}

func userFavoritesKey(userID int64) string {
	return userFavoritesKeyPrefix + strconv.FormatInt(userID, 10)
}

func userRatingsKey(userID int64) string {
	return userRatingsKeyPrefix + strconv.FormatInt(userID, 10)
}

func userRecsKey(userID int64) string {
	return userRecsKeyPrefix + strconv.FormatInt(userID, 10)
}
